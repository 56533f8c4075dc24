package joblog

import "strings"

// Code identifies one kind of job log line. The set below is closed:
// handlers and workers never emit free-form codes, so clients can keep
// a complete translation table.
type Code string

// Job lifecycle.
const (
	CodeJobStarted              Code = "JOB_STARTED"
	CodeJobStartingVerification Code = "JOB_STARTING_VERIFICATION"
	CodeJobCompleted            Code = "JOB_COMPLETED"
	CodeJobFailed               Code = "JOB_FAILED"
	CodeJobTimeout              Code = "JOB_TIMEOUT"
	CodeJobCancelled            Code = "JOB_CANCELLED"
)

// Verification progress, visible to every viewer.
const (
	CodeVerifyDomain               Code = "VERIFY_DOMAIN"
	CodeVerifyGeneratingCandidates Code = "VERIFY_GENERATING_CANDIDATES"
	CodeVerifyCheckingMailServer   Code = "VERIFY_CHECKING_MAIL_SERVER"
	CodeVerifyCandidate            Code = "VERIFY_CANDIDATE"
	CodeVerifyMXRecords            Code = "VERIFY_MX_RECORDS"
	CodeVerifyMXNotFound           Code = "VERIFY_MX_NOT_FOUND"
	CodeVerifyCompleted            Code = "VERIFY_COMPLETED"
	CodeVerifyNoEmailFound         Code = "VERIFY_NO_EMAIL_FOUND"
)

// Errors.
const (
	CodeErrorLeadNotFound Code = "ERROR_LEAD_NOT_FOUND"
	CodeErrorLeadOptedOut Code = "ERROR_LEAD_OPTED_OUT"
	CodeErrorGeneric      Code = "ERROR_GENERIC"
)

// Debug detail, shown only to privileged viewers.
const (
	CodeDebugWorkerProcessing     Code = "DEBUG_WORKER_PROCESSING"
	CodeDebugLeadLoaded           Code = "DEBUG_LEAD_LOADED"
	CodeDebugCallingVerifier      Code = "DEBUG_CALLING_VERIFIER"
	CodeDebugVerifierResult       Code = "DEBUG_VERIFIER_RESULT"
	CodeDebugConfig               Code = "DEBUG_CONFIG"
	CodeDebugCandidatesGenerated  Code = "DEBUG_CANDIDATES_GENERATED"
	CodeDebugCandidateHeader      Code = "DEBUG_CANDIDATE_HEADER"
	CodeDebugCandidateEmail       Code = "DEBUG_CANDIDATE_EMAIL"
	CodeDebugCandidateStatus      Code = "DEBUG_CANDIDATE_STATUS"
	CodeDebugMoreCandidates       Code = "DEBUG_MORE_CANDIDATES"
	CodeDebugMXLookup             Code = "DEBUG_MX_LOOKUP"
	CodeDebugMXLookupFailed       Code = "DEBUG_MX_LOOKUP_FAILED"
	CodeDebugMXException          Code = "DEBUG_MX_EXCEPTION"
	CodeDebugProviderDetected     Code = "DEBUG_PROVIDER_DETECTED"
	CodeDebugDNSSPFDMARC          Code = "DEBUG_DNS_SPF_DMARC"
	CodeDebugDisposableDomain     Code = "DEBUG_DISPOSABLE_DOMAIN"
	CodeDebugSMTPSkipped          Code = "DEBUG_SMTP_SKIPPED"
	CodeDebugSMTPDNSResolve       Code = "DEBUG_SMTP_DNS_RESOLVE"
	CodeDebugSMTPConnecting       Code = "DEBUG_SMTP_CONNECTING"
	CodeDebugSMTPRcptResult       Code = "DEBUG_SMTP_RCPT_RESULT"
	CodeDebugSMTPException        Code = "DEBUG_SMTP_EXCEPTION"
	CodeDebugRcptVerifying        Code = "DEBUG_RCPT_VERIFYING"
	CodeDebugCatchallChecking     Code = "DEBUG_CATCHALL_CHECKING"
	CodeDebugCatchallTesting      Code = "DEBUG_CATCHALL_TESTING"
	CodeDebugCatchallResult       Code = "DEBUG_CATCHALL_RESULT"
	CodeDebugCatchallInconclusive Code = "DEBUG_CATCHALL_INCONCLUSIVE"
	CodeDebugWebSearching         Code = "DEBUG_WEB_SEARCHING"
	CodeDebugWebFound             Code = "DEBUG_WEB_FOUND"
	CodeDebugWebNotFound          Code = "DEBUG_WEB_NOT_FOUND"
	CodeDebugWebError             Code = "DEBUG_WEB_ERROR"
	CodeDebugWebSkippedNoProvider Code = "DEBUG_WEB_SKIPPED_NO_PROVIDER"
	CodeDebugWebSkippedNoKey      Code = "DEBUG_WEB_SKIPPED_NO_KEY"
)

// Log levels and visibilities as stored on job_log_lines rows.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelError = "error"

	VisibilityPublic     = "public"
	VisibilityPrivileged = "privileged"
)

// Level returns the severity implied by the code.
func (c Code) Level() string {
	switch {
	case strings.HasPrefix(string(c), "DEBUG_"):
		return LevelDebug
	case strings.HasPrefix(string(c), "ERROR_"), c == CodeJobFailed, c == CodeJobTimeout:
		return LevelError
	default:
		return LevelInfo
	}
}

// Visibility returns who may see lines with this code. Debug codes carry
// internal detail (MX hosts, SMTP responses, raw errors) and are shown
// only to privileged viewers.
func (c Code) Visibility() string {
	if strings.HasPrefix(string(c), "DEBUG_") {
		return VisibilityPrivileged
	}
	return VisibilityPublic
}

// AllCodes lists every code in the closed set.
var AllCodes = []Code{
	CodeJobStarted,
	CodeJobStartingVerification,
	CodeJobCompleted,
	CodeJobFailed,
	CodeJobTimeout,
	CodeJobCancelled,
	CodeVerifyDomain,
	CodeVerifyGeneratingCandidates,
	CodeVerifyCheckingMailServer,
	CodeVerifyCandidate,
	CodeVerifyMXRecords,
	CodeVerifyMXNotFound,
	CodeVerifyCompleted,
	CodeVerifyNoEmailFound,
	CodeErrorLeadNotFound,
	CodeErrorLeadOptedOut,
	CodeErrorGeneric,
	CodeDebugWorkerProcessing,
	CodeDebugLeadLoaded,
	CodeDebugCallingVerifier,
	CodeDebugVerifierResult,
	CodeDebugConfig,
	CodeDebugCandidatesGenerated,
	CodeDebugCandidateHeader,
	CodeDebugCandidateEmail,
	CodeDebugCandidateStatus,
	CodeDebugMoreCandidates,
	CodeDebugMXLookup,
	CodeDebugMXLookupFailed,
	CodeDebugMXException,
	CodeDebugProviderDetected,
	CodeDebugDNSSPFDMARC,
	CodeDebugDisposableDomain,
	CodeDebugSMTPSkipped,
	CodeDebugSMTPDNSResolve,
	CodeDebugSMTPConnecting,
	CodeDebugSMTPRcptResult,
	CodeDebugSMTPException,
	CodeDebugRcptVerifying,
	CodeDebugCatchallChecking,
	CodeDebugCatchallTesting,
	CodeDebugCatchallResult,
	CodeDebugCatchallInconclusive,
	CodeDebugWebSearching,
	CodeDebugWebFound,
	CodeDebugWebNotFound,
	CodeDebugWebError,
	CodeDebugWebSkippedNoProvider,
	CodeDebugWebSkippedNoKey,
}
