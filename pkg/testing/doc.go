// Package testing provides a fluent test harness for the todomock engine.
//
// The harness has two entry points matching the two operating modes:
//
// Server starts a real listener on a random port and returns a typed client,
// for tests that exercise the full HTTP path including middleware:
//
//	func TestFrontendFlow(t *testing.T) {
//	    srv := todotest.Server(t, todotest.WithSeed(
//	        todotest.Todo("Buy milk"),
//	        todotest.Todo("Walk dog").Done(),
//	    ))
//
//	    todos, err := srv.Client.ListTodos(context.Background())
//	    require.NoError(t, err)
//	    require.Len(t, todos, 2)
//
//	    srv.AssertHandled(t, "GET", "/api/todos")
//	}
//
// Intercept builds an in-process http.Client whose transport answers the todo
// API without any network, for tests of code that takes an *http.Client:
//
//	func TestHTTPConsumer(t *testing.T) {
//	    h := todotest.Intercept(t)
//	    resp, err := h.Client.Get("http://backend.invalid/api/todos")
//	    ...
//	}
//
// Both clean themselves up via t.Cleanup, so no explicit Stop is needed.
package testing
