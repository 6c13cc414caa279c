package genai

import "errors"

// Fixed user-facing replies for gateway failures. The underlying error is
// logged, never shown to the student.
const (
	// MsgUnavailable is sent when the provider is unreachable or errored.
	MsgUnavailable = "Hubo un problema conectando con la IA. Inténtalo de nuevo."
	// MsgMalformed is sent when the provider answered with empty or
	// unparseable content.
	MsgMalformed = "Lo siento, no pude generar una respuesta en este momento."
)

// UserSafeMessage maps a gateway error to the fixed apology shown to the
// user, distinguishing unreachable-service from malformed-response failures.
func UserSafeMessage(err error) string {
	var invalid *ErrInvalidResponse
	if errors.As(err, &invalid) {
		return MsgMalformed
	}
	return MsgUnavailable
}
