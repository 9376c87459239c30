package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation         ErrCode = "VALIDATION_ERROR"
	ErrInvalidID          ErrCode = "INVALID_ID"
	ErrInvalidPayload     ErrCode = "INVALID_PAYLOAD"
	ErrSessionTokenNeeded ErrCode = "SESSION_TOKEN_REQUIRED"
	ErrInvalidAnswerShape ErrCode = "INVALID_ANSWER_SHAPE"
	ErrOutOfRange         ErrCode = "OUT_OF_RANGE"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrSessionNotFound  ErrCode = "SESSION_NOT_FOUND"
	ErrQuestionNotFound ErrCode = "QUESTION_NOT_FOUND"
	ErrQuizUnavailable  ErrCode = "QUIZ_UNAVAILABLE"
	ErrResultNotReady   ErrCode = "RESULT_NOT_AVAILABLE"

	// ─── Session policy ────────────────────────────────────────────────
	ErrAlreadyActive       ErrCode = "ALREADY_ACTIVE"
	ErrAttemptLimit        ErrCode = "ATTEMPT_LIMIT_REACHED"
	ErrSessionTerminal     ErrCode = "SESSION_TERMINAL"
	ErrSessionPaused       ErrCode = "SESSION_PAUSED"
	ErrSessionNotPaused    ErrCode = "NOT_PAUSED"
	ErrSessionAlreadyPause ErrCode = "ALREADY_PAUSED"
	ErrPauseNotEligible    ErrCode = "PAUSE_NOT_ELIGIBLE"

	// ─── Contention ────────────────────────────────────────────────────
	ErrSessionBusy       ErrCode = "SESSION_BUSY"
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."
	case ErrTokenExpired:
		return "Token autentikasi telah kedaluwarsa."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."
	case ErrSessionTokenNeeded:
		return "Token sesi kuis diperlukan."
	case ErrInvalidAnswerShape:
		return "Format jawaban tidak sesuai dengan jenis pertanyaan."
	case ErrOutOfRange:
		return "Nomor pertanyaan di luar jangkauan."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrSessionNotFound:
		return "Sesi kuis tidak ditemukan."
	case ErrQuestionNotFound:
		return "Pertanyaan tidak termasuk dalam sesi ini."
	case ErrQuizUnavailable:
		return "Kuis ini saat ini tidak tersedia."
	case ErrResultNotReady:
		return "Hasil belum tersedia untuk sesi ini."

	// ─── Session policy ────────────────────────────────────────────────
	case ErrAlreadyActive:
		return "Anda masih memiliki sesi aktif untuk kuis ini."
	case ErrAttemptLimit:
		return "Batas jumlah percobaan untuk kuis ini telah tercapai."
	case ErrSessionTerminal:
		return "Sesi kuis telah berakhir."
	case ErrSessionPaused:
		return "Sesi sedang dijeda. Lanjutkan sesi terlebih dahulu."
	case ErrSessionNotPaused:
		return "Sesi tidak sedang dijeda."
	case ErrSessionAlreadyPause:
		return "Sesi sudah dijeda."
	case ErrPauseNotEligible:
		return "Jeda belum diizinkan. Jawab lebih banyak pertanyaan terlebih dahulu."

	// ─── Contention ────────────────────────────────────────────────────
	case ErrSessionBusy:
		return "Sesi sedang diproses. Silakan coba lagi sebentar."
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
