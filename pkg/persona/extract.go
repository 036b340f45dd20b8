package persona

import (
	"net/http"
	"regexp"

	"google.golang.org/grpc/metadata"

	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

// HeaderAuthorization is the header (and gRPC metadata key) carrying the
// bearer token.
const HeaderAuthorization = "Authorization"

// AccessTokenParam is the query and form field a token may be sent in.
const AccessTokenParam = "access_token"

var bearerPattern = regexp.MustCompile(`^(?i:bearer)\s+(\S+)\s*$`)

// ExtractToken finds the bearer token on r. It looks, in order, at the
// Authorization header, the access_token query parameter and the
// access_token form field of POST, PUT and PATCH bodies.
//
// A present Authorization header that is not "Bearer <token>" fails
// without looking further.
//
// Error codes returned:
//   - [pserr.CodeMalformedAuthHeader]: Authorization header is malformed
//   - [pserr.CodeNoTokenFound]: no token anywhere
func ExtractToken(r *http.Request) (string, error) {
	if values := r.Header.Values(HeaderAuthorization); len(values) > 0 {
		return parseBearer(values[0])
	}

	if token := r.URL.Query().Get(AccessTokenParam); token != "" {
		return token, nil
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if token := r.PostFormValue(AccessTokenParam); token != "" {
			return token, nil
		}
	}

	return "", pserr.New(pserr.CodeNoTokenFound, "persona: no bearer token on request")
}

// ExtractTokenFromMetadata finds the bearer token in incoming gRPC
// metadata, with the same header rules as [ExtractToken].
func ExtractTokenFromMetadata(md metadata.MD) (string, error) {
	values := md.Get(HeaderAuthorization)
	if len(values) == 0 {
		return "", pserr.New(pserr.CodeNoTokenFound, "persona: no bearer token in metadata")
	}
	return parseBearer(values[0])
}

func parseBearer(header string) (string, error) {
	m := bearerPattern.FindStringSubmatch(header)
	if m == nil {
		return "", pserr.New(pserr.CodeMalformedAuthHeader,
			"persona: authorization header must be of the form 'Bearer <token>'")
	}
	return m[1], nil
}
