package entity

import (
	"fmt"
	"time"
)

// Estados do ciclo de vida de um documento fiscal.
// DRAFT → SUBMITTED → PROCESSING → {AUTHORIZED | REJECTED}; AUTHORIZED → CANCELLED.
// REJECTED e CANCELLED são absorventes: um documento rejeitado não é reenviado,
// uma nova tentativa cria outro documento com outra referência.
const (
	DocumentStatusDraft      = "DRAFT"
	DocumentStatusSubmitted  = "SUBMITTED"
	DocumentStatusProcessing = "PROCESSING"
	DocumentStatusAuthorized = "AUTHORIZED"
	DocumentStatusRejected   = "REJECTED"
	DocumentStatusCancelled  = "CANCELLED"
)

// Tipos de documento emitidos.
const (
	DocumentKindNFe = "nfe"
)

// Tipos de artefato recuperáveis de um documento autorizado.
const (
	ArtifactPDF = "pdf" // representação legível (DANFE)
	ArtifactXML = "xml" // original estruturado autorizado
)

// FiscalDocument é o registro persistente de uma emissão junto à autoridade fiscal.
// Criado quando a submissão começa; alterado apenas pelo controlador de ciclo de
// vida; nunca removido — cancelamento é transição de estado, não exclusão.
type FiscalDocument struct {
	ID        string
	OrderID   string
	CompanyID string
	Kind      string
	Status    string

	// Chave de idempotência junto ao gateway: "<pedido>-<tentativa>", gerada uma
	// única vez na primeira submissão e nunca regenerada.
	GatewayRef string
	Attempt    int

	AuthorityNumber  string // número atribuído pela autoridade após autorização
	AccessKey        string // chave de acesso do documento autorizado
	SubmittedPayload string // JSON enviado ao gateway
	LastResponse     string // última resposta relevante do gateway (crua)
	PDFURI           string
	XMLURI           string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal indica se o documento está em estado absorvente.
func (d *FiscalDocument) IsTerminal() bool {
	return d.Status == DocumentStatusRejected || d.Status == DocumentStatusCancelled
}

// ArtifactURI devolve a URI persistida do artefato pedido, ou vazio se ausente.
func (d *FiscalDocument) ArtifactURI(kind string) string {
	switch kind {
	case ArtifactPDF:
		return d.PDFURI
	case ArtifactXML:
		return d.XMLURI
	}
	return ""
}

// StateError indica uma transição tentada a partir de um estado inválido
// (ex.: cancelar um documento em DRAFT). É erro de uso do contrato, não do usuário.
type StateError struct {
	DocumentID string
	Current    string
	Attempted  string // transição tentada: submit | poll | cancel | fetch
}

func (e *StateError) Error() string {
	return fmt.Sprintf("documento %s: transição %q inválida a partir do estado %s",
		e.DocumentID, e.Attempted, e.Current)
}
