package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeCancelled          ErrorCode = "COMMON_016"
)

// Aliases used at call sites.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
	CodeRateLimit    = ErrCodeTooManyRequests
	CodeTimeout      = ErrCodeTimeout
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Remote Service Error Codes
const (
	ErrCodeRemoteNotFound    ErrorCode = "REMOTE_001"
	ErrCodeRemoteTimeout     ErrorCode = "REMOTE_002"
	ErrCodeRemoteRateLimited ErrorCode = "REMOTE_003"
	ErrCodeRemoteMalformed   ErrorCode = "REMOTE_004"
	ErrCodeRemoteUnavailable ErrorCode = "REMOTE_005"
)

// Sequence Error Codes
const (
	ErrCodeSequenceEmpty     ErrorCode = "SEQ_001"
	ErrCodeSequenceAmbiguous ErrorCode = "SEQ_002"
	ErrCodeAlignmentFailed   ErrorCode = "SEQ_003"
	ErrCodeFastaParse        ErrorCode = "SEQ_004"
)

// Structure Error Codes
const (
	ErrCodeStructureParse        ErrorCode = "STRUCT_001"
	ErrCodeStructureMissingChain ErrorCode = "STRUCT_002"
	ErrCodeInsufficientFitPoints ErrorCode = "STRUCT_003"
	ErrCodeCollinearFitPoints    ErrorCode = "STRUCT_004"
	ErrCodeStructureWrite        ErrorCode = "STRUCT_005"
)

// Source Data Error Codes
const (
	ErrCodeBadRow              ErrorCode = "DATA_001"
	ErrCodeUnsupportedAntigen  ErrorCode = "DATA_002"
	ErrCodeUnfetchedSequence   ErrorCode = "DATA_003"
	ErrCodeObsoleteEntry       ErrorCode = "DATA_004"
	ErrCodeNoCandidates        ErrorCode = "DATA_005"
	ErrCodeImpossibleChainSpec ErrorCode = "DATA_006"
)

// Pipeline Error Codes
const (
	ErrCodeJournal ErrorCode = "PIPE_001"
	ErrCodeExport  ErrorCode = "PIPE_002"
	ErrCodeEvent   ErrorCode = "PIPE_003"
)

// HTTPStatus maps an error code onto the status the remote or status server
// layers report for it.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeOK:
		return http.StatusOK
	case ErrCodeNotFound, ErrCodeRemoteNotFound:
		return http.StatusNotFound
	case ErrCodeTooManyRequests, ErrCodeRemoteRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeTimeout, ErrCodeRemoteTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeServiceUnavailable, ErrCodeRemoteUnavailable, ErrCodeFeatureDisabled:
		return http.StatusServiceUnavailable
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Module returns the prefix group of the code, e.g. "REMOTE" for REMOTE_002.
func (c ErrorCode) Module() string {
	s := string(c)
	if i := strings.IndexByte(s, '_'); i > 0 {
		return s[:i]
	}
	return s
}

//Personal.AI order the ending
