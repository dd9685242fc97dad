package hammock

// Session returns the nearest session attached to c or one of its
// ancestors, searching from c towards the root. It returns nil when no node
// in the chain owns a session.
func (c *Chain) Session() Session {
	for node := range c.ancestors() {
		if node.session != nil {
			return node.session
		}
	}
	return nil
}

// CloseSession closes the session owned by c. With probe set it closes the
// nearest session found by Session instead. Nothing happens when there is no
// session to close.
func (c *Chain) CloseSession(probe bool) error {
	session := c.session
	if probe {
		session = c.Session()
	}
	if session == nil {
		return nil
	}

	cfg := c.config
	if cfg.debug != nil && cfg.debug.Enabled && cfg.debug.LogSessions && cfg.logger != nil {
		cfg.logger.Debug("Closing session", "url", c.URL(), "probe", probe)
	}
	return session.Close()
}
