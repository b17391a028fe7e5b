// Package ddberr classifies errors returned by DynamoDB clients into the
// handful of outcomes callers branch on.
//
// Classification looks at the typed SDK exceptions first, then at the
// smithy API error code, then at transport failures, so it works the same
// for the AWS client, DynamoDB Local and the badger-backed ddbstore.
package ddberr

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

type Kind int

const (
	// Other is anything not covered below, including throttling and
	// validation errors.
	Other Kind = iota
	NotFound
	AlreadyExists
	Authorization
	Network
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case AlreadyExists:
		return "already exists"
	case Authorization:
		return "authorization"
	case Network:
		return "network"
	default:
		return "other"
	}
}

var authCodes = map[string]bool{
	"AccessDeniedException":               true,
	"UnrecognizedClientException":         true,
	"InvalidSignatureException":           true,
	"IncompleteSignature":                 true,
	"MissingAuthenticationToken":          true,
	"MissingAuthenticationTokenException": true,
	"ExpiredToken":                        true,
	"ExpiredTokenException":               true,
	"InvalidClientTokenId":                true,
	"InvalidIdentityToken":                true,
	"IDPRejectedClaim":                    true,
	"AuthFailure":                         true,
	"NotAuthorized":                       true,
}

// Classify maps err to a Kind. A nil error is Other.
func Classify(err error) Kind {
	if err == nil {
		return Other
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}

	var rnf *types.ResourceNotFoundException
	var tnf *types.TableNotFoundException
	if errors.As(err, &rnf) || errors.As(err, &tnf) {
		return NotFound
	}
	var riu *types.ResourceInUseException
	var tae *types.TableAlreadyExistsException
	if errors.As(err, &riu) || errors.As(err, &tae) {
		return AlreadyExists
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch code := ae.ErrorCode(); {
		case code == "ResourceNotFoundException" || code == "TableNotFoundException":
			return NotFound
		case code == "ResourceInUseException" || code == "TableAlreadyExistsException":
			return AlreadyExists
		case authCodes[code]:
			return Authorization
		}
		return Other
	}

	var sendErr *smithyhttp.RequestSendError
	var netErr net.Error
	if errors.As(err, &sendErr) || errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return Network
	}
	return Other
}

// Error tags an error with its Kind and the operation that produced it.
// The original error stays reachable through errors.Is and errors.As.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap classifies err and tags it with op. Returns nil for a nil error.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: Classify(err), Op: op, Err: err}
}

func IsNotFound(err error) bool      { return err != nil && Classify(err) == NotFound }
func IsAlreadyExists(err error) bool { return err != nil && Classify(err) == AlreadyExists }
