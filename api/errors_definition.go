//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// The initial list of errors were more or less grouped by topic, but the list grows with time in a random fashion.
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap (say, error code 40010, 40011 and 40013 exist, 40012 is missing) DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status,
// for example the fact that Code 40005 returns HTTP Status 404 Not Found is just a coincidence
//
// Do note that HTTPstatus 204 No Content implies the response body will be empty,
// so the Code and Message will actually be discarded, never sent to the client
var (
	ErrResourceNotFound    = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody       = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrInvalidSignature    = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid signature")}
	ErrMalformedElectionID = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed election ID")}
	ErrElectionNotFound    = Error{Code: 40005, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("election not found")}
	ErrElectionExists      = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("election already registered")}
	ErrElectionClosed      = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("election is not accepting votes")}
	ErrInvalidCredential   = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid credential")}
	ErrCredentialUsed      = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("credential already used")}
	ErrInvalidBallotProof  = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid ballot proof")}
	ErrInvalidVote         = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid vote")}
	ErrMalformedParam      = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed URL parameter")}
	ErrVoteNotFound        = Error{Code: 40013, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("vote not found")}
	ErrCeremonyNotFound    = Error{Code: 40014, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("ceremony not found")}
	ErrCeremonyExists      = Error{Code: 40015, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("ceremony already exists")}
	ErrCeremonyTerminal    = Error{Code: 40016, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("ceremony already terminated")}
	ErrInvalidShares       = Error{Code: 40017, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid required shares")}
	ErrUnknownTrustee      = Error{Code: 40018, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unknown trustee")}
	ErrDuplicateTrustee    = Error{Code: 40019, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("trustee already submitted")}
	ErrNoValidPartials     = Error{Code: 40020, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("no valid partial decryptions")}
	ErrResultNotReady      = Error{Code: 40021, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("tally result not available")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrTallyFailed                = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("tally failed")}
)
