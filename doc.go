/*
Package apiclient builds typed REST clients from declarations.

A client method is described once, as an EndpointSpec, and turned into a
callable Method[T] by Declare or MustDeclare. The declaration names the HTTP
verb, a URL template with {placeholders}, the kind of every parameter (path,
query, body or multipart), extra header templates and the body encoding.
Declarations are validated up front: a placeholder that matches neither a
parameter nor a scope value, or a path parameter nobody references, is a
DeclarationError and never reaches the network.

The result type T selects how the response is returned: StatusCode yields
the status and never fails on it, []byte and string return the body of a 2xx
response, and any other type is decoded from JSON or msgpack.

	var getTodo = apiclient.MustDeclare[Todo](apiclient.EndpointSpec{
		Name:   "Todo",
		Verb:   "GET",
		URL:    "/todos/{id}",
		Params: []apiclient.Param{apiclient.PathParam("id")},
	})

	client, err := apiclient.NewClient(apiclient.NoAuth(), &apiclient.Config{
		BaseURL: "https://jsonplaceholder.typicode.com",
	})
	todo, err := getTodo.Call(ctx, client, apiclient.Args{"id": 1})

Most users do not write specs by hand. The apigen command reads Go
interfaces annotated with +apiclient markers and generates a client struct
implementing them:

	// +apiclient:client=Placeholder
	type API interface {
		// +apiclient:GET "/todos/{id}"
		Todo(ctx context.Context, id int) (Todo, error)
	}

Run "go generate" with

	//go:generate go run github.com/vast-data/go-api-client/cmd/apigen generate

next to the interface to write <file>_apigen.go.
*/
package apiclient
