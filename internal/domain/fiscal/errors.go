package fiscal

import "fmt"

// Motivos de RuleError.
const (
	RuleMissingConfig = "MISSING_CONFIG"
)

// RuleError indica configuração fiscal incompleta para o regime ativo.
// Nunca é retentado automaticamente: o usuário precisa corrigir a configuração.
type RuleError struct {
	Reason string
	Field  string // campo da configuração ausente ou inválido
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("regra fiscal: %s (campo %s)", e.Reason, e.Field)
}

// Motivos de AssemblyError.
const (
	AssemblyIncompleteOrder     = "INCOMPLETE_ORDER"
	AssemblyIncompleteRecipient = "INCOMPLETE_RECIPIENT"
)

// AssemblyError indica dados insuficientes no pedido ou no destinatário.
type AssemblyError struct {
	Reason string
	Field  string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("montagem do documento: %s (campo %s)", e.Reason, e.Field)
}
