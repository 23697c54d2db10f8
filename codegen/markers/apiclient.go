package markers

import (
	"net/http"
)

// Prefix of every apigen marker.
const Prefix = "apiclient"

// Marker names understood by apigen.
const (
	MarkerClient        = Prefix + ":client"
	MarkerBody          = Prefix + ":body"
	MarkerMultipart     = Prefix + ":multipart"
	MarkerMultipartMode = Prefix + ":multipart-mode"
	MarkerQuery         = Prefix + ":query"
	MarkerHeader        = Prefix + ":header"
	MarkerEncoding      = Prefix + ":encoding"
	MarkerSince         = Prefix + ":since"
)

// Verbs that may be used as "+apiclient:<VERB> <url>" markers.
var Verbs = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodConnect,
	http.MethodTrace,
}

// VerbMarker returns the marker name for an HTTP verb.
func VerbMarker(verb string) string {
	return Prefix + ":" + verb
}

// RegisterAPIClientMarkers registers all apigen markers with the given registry.
func RegisterAPIClientMarkers(registry *Registry) error {
	if err := registry.Register(MarkerClient, DescribesType, "",
		"Generates a client struct with this name implementing the interface"); err != nil {
		return err
	}
	for _, verb := range Verbs {
		if err := registry.Register(VerbMarker(verb), DescribesMethod, "",
			"Declares a "+verb+" request to the given URL template"); err != nil {
			return err
		}
	}
	if err := registry.Register(MarkerBody, DescribesMethod, "",
		"Names the parameter sent as the request body"); err != nil {
		return err
	}
	if err := registry.Register(MarkerMultipart, DescribesMethod, []string{},
		"Names the parameters sent as multipart/form-data parts"); err != nil {
		return err
	}
	if err := registry.Register(MarkerMultipartMode, DescribesMethod, "",
		"fields (default) or aggregate"); err != nil {
		return err
	}
	if err := registry.Register(MarkerQuery, DescribesMethod, []string{},
		"Names the parameters appended to the query string"); err != nil {
		return err
	}
	if err := registry.Register(MarkerHeader, DescribesMethod, "",
		"Adds a request header; the value is a template"); err != nil {
		return err
	}
	if err := registry.Register(MarkerEncoding, DescribesMethod, "",
		"Body encoding: json (default), msgpack or form"); err != nil {
		return err
	}
	if err := registry.Register(MarkerSince, DescribesMethod, "",
		"Minimum server version serving this endpoint"); err != nil {
		return err
	}

	// Repeatable markers
	for _, name := range []string{MarkerHeader, MarkerMultipart, MarkerQuery} {
		registry.GetDefinition(name).Repeatable = true
	}
	return nil
}

// MustRegisterAPIClientMarkers is like RegisterAPIClientMarkers but panics on error.
func MustRegisterAPIClientMarkers(registry *Registry) {
	if err := RegisterAPIClientMarkers(registry); err != nil {
		panic(err)
	}
}
