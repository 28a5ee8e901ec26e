package shapes

import (
	"context"
	"net/http"
)

// Request is the outgoing call handed to a Signer before dispatch.
// Signers may add or replace entries in Headers.
type Request struct {
	Endpoint Endpoint
	Method   string
	URL      string
	Headers  map[string]string
}

// Signer injects request attestation (tokens, signatures) before a call is sent.
type Signer interface {
	Sign(ctx context.Context, req *Request) error
}

// SignerFunc adapts a function to the Signer interface.
type SignerFunc func(ctx context.Context, req *Request) error

func (f SignerFunc) Sign(ctx context.Context, req *Request) error { return f(ctx, req) }

// HeaderSigner sets a fixed set of headers on every request.
type HeaderSigner map[string]string

func (h HeaderSigner) Sign(_ context.Context, req *Request) error {
	for k, v := range h {
		req.Headers[http.CanonicalHeaderKey(k)] = v
	}
	return nil
}
