package form

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/abzagency/signup-api/internal/models"
	"github.com/abzagency/signup-api/pkg/abzapi"
)

// Form-level messages for failed submissions
const (
	MsgDuplicateUser   = "A user with the same email or phone number already exists."
	MsgSubmissionError = "An error occurred while submitting the form."
)

// OutcomeKind classifies a finished submit call
type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "success"
	OutcomeRejected  OutcomeKind = "rejected"
	OutcomeError     OutcomeKind = "error"
)

// Outcome is a submit call reduced to what the form needs
type Outcome struct {
	Kind OutcomeKind

	// User is set on success when the response carried a user object
	User *models.User

	// StatusCode is the HTTP status of a rejected call
	StatusCode int

	// FormError is the message to show for rejected and failed calls
	FormError string

	// Err is the underlying error for rejected and failed calls
	Err error
}

// InterpretSubmission turns the users API result into an Outcome.
//
// A rejection with field failures shows every failure message joined by
// ", " followed by the status code. A 409 without failures shows the
// duplicate user message. Any other rejection shows the server message with
// the status code. Transport and decode errors show a generic message.
func InterpretSubmission(resp *abzapi.CreateUserResponse, err error) Outcome {
	if err == nil && resp != nil && resp.Success {
		return Outcome{Kind: OutcomeSucceeded, User: resp.User}
	}

	var respErr *abzapi.ResponseError
	if errors.As(err, &respErr) {
		return Outcome{
			Kind:       OutcomeRejected,
			StatusCode: respErr.StatusCode,
			FormError:  rejectionMessage(respErr),
			Err:        err,
		}
	}

	if err == nil {
		err = errors.New("users api returned no result")
	}
	return Outcome{Kind: OutcomeError, FormError: MsgSubmissionError, Err: err}
}

func rejectionMessage(e *abzapi.ResponseError) string {
	if len(e.Fails) > 0 {
		return fmt.Sprintf("%s (Error code: %d)", strings.Join(e.Fails.Flatten(), ", "), e.StatusCode)
	}
	if e.StatusCode == http.StatusConflict {
		return MsgDuplicateUser
	}
	return fmt.Sprintf("%s (Error code: %d)", e.Message, e.StatusCode)
}
