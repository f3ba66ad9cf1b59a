// Package sdk provides the Threadline Go SDK for interacting with the Threadline Assistants API.
package sdk

import (
	"net/http"

	"github.com/threadline/threadline/sdk/go/headers"
)

// authStrategy stamps one credential onto an outgoing request.
type authStrategy interface {
	Apply(req *http.Request)
}

// authChain applies every configured credential in order. Secret key and
// bearer token can coexist; the server picks the strongest.
type authChain []authStrategy

func (c authChain) Apply(req *http.Request) {
	for _, s := range c {
		if s != nil {
			s.Apply(req)
		}
	}
}

// headerCredential sets one header to a fixed value. A zero value is inert,
// so half-configured credentials never emit empty headers.
type headerCredential struct {
	name  string
	value string
}

func (h headerCredential) Apply(req *http.Request) {
	if h.name == "" || h.value == "" {
		return
	}
	req.Header.Set(h.name, h.value)
}

func bearerAuth(token string) headerCredential {
	if token == "" {
		return headerCredential{}
	}
	return headerCredential{name: "Authorization", value: "Bearer " + token}
}

func apiKeyAuth(key string) headerCredential {
	return headerCredential{name: headers.APIKey, value: key}
}
