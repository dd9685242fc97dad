// Package hammock builds REST URLs fluently and fires requests at them.
//
// A Chain is an immutable linked list of path segments growing from a root
// towards the leaf. Child adds one segment, Call adds any number of
// (stringified) segments, and URL joins them back into a string:
//
//	api := hammock.New("https://api.example.com", hammock.WithSession(hammock.SessionConfig{
//	    Headers: map[string]string{"Accept": "application/json"},
//	}))
//	defer api.CloseSession(false)
//
//	users := api.Child("v1").Child("users")
//	fmt.Println(users.Call(42))                       // https://api.example.com/v1/users/42
//	resp, err := users.GET(ctx, hammock.Args{"page": 2}) // ?page=2
//
// Requests go through the nearest session attached to the chain or one of
// its ancestors; chains without one use the stateless DefaultTransport.
//
// Arguments are passed as Args. Keys listed by SpecialKeys (params, headers,
// auth, timeout, ...) configure the request. As a convenience a GET without a
// "params" key moves every other key into the query string; mixing the two
// kinds of keys in such a GET fails with ErrAmbiguousArguments because the
// intent cannot be told apart.
//
// The library does not retry, cache or interpret status codes. Transport
// errors are returned exactly as net/http produced them.
package hammock
