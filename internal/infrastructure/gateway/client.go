package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
	"github.com/tu-usuario/fiscal-pro/internal/domain/fiscal"
)

// HTTPClient implementa Client sobre a API REST/JSON do gateway de emissão.
// Usa net/http da stdlib, como o restante dos clientes de autoridade do projeto.
type HTTPClient struct {
	httpClient        *http.Client
	sandboxBaseURL    string
	productionBaseURL string
}

// Config do cliente HTTP do gateway.
type Config struct {
	SandboxBaseURL    string
	ProductionBaseURL string
	// Timeout de rede de último recurso; o timeout efetivo de cada chamada vem
	// do contexto do chamador.
	Timeout time.Duration
}

// NewHTTPClient constrói o cliente. O gateway pode levar vários segundos para
// responder, daí o timeout generoso por padrão.
func NewHTTPClient(cfg Config) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		httpClient:        &http.Client{Timeout: timeout},
		sandboxBaseURL:    strings.TrimRight(cfg.SandboxBaseURL, "/"),
		productionBaseURL: strings.TrimRight(cfg.ProductionBaseURL, "/"),
	}
}

var _ Client = (*HTTPClient)(nil)

// ── Estruturas de resposta do gateway ─────────────────────────────────────────

type submitResponse struct {
	Status string `json:"status"`
	Ref    string `json:"ref"`
}

type statusResponse struct {
	Status          string `json:"status"`
	Numero          string `json:"numero"`
	ChaveNFe        string `json:"chave_nfe"`
	MensagemSefaz   string `json:"mensagem_sefaz"`
	CaminhoDanfe    string `json:"caminho_danfe"`
	CaminhoXML      string `json:"caminho_xml_nota_fiscal"`
}

type cancelRequest struct {
	Justificativa string `json:"justificativa"`
}

type cancelResponse struct {
	Status string `json:"status"`
}

// ── Operações ─────────────────────────────────────────────────────────────────

// Submit envia o documento para autorização. A ref na query string é a chave
// de idempotência: o gateway deduplica reenvios com a mesma ref.
func (c *HTTPClient) Submit(ctx context.Context, creds Credentials, payload *fiscal.DocumentPayload, ref string) (*SubmitResult, error) {
	base, err := c.baseURL(creds.Environment)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gateway: serializar payload: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v2/nfe?ref=%s", base, url.QueryEscape(ref))
	status, raw, err := c.do(ctx, creds, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var resp submitResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("gateway: resposta de submissão inválida: %w", err)
	}
	return &SubmitResult{
		Ref:        resp.Ref,
		Status:     resp.Status,
		HTTPStatus: status,
		RawBody:    raw,
	}, nil
}

// QueryStatus consulta a situação do documento pela referência de submissão.
func (c *HTTPClient) QueryStatus(ctx context.Context, creds Credentials, ref string) (*StatusResult, error) {
	base, err := c.baseURL(creds.Environment)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/v2/nfe/%s", base, url.PathEscape(ref))
	status, raw, err := c.do(ctx, creds, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var resp statusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("gateway: resposta de consulta inválida: %w", err)
	}
	return &StatusResult{
		Status:          resp.Status,
		AuthorityNumber: resp.Numero,
		AccessKey:       resp.ChaveNFe,
		Message:         resp.MensagemSefaz,
		PDFPath:         resp.CaminhoDanfe,
		XMLPath:         resp.CaminhoXML,
		HTTPStatus:      status,
		RawBody:         raw,
	}, nil
}

// Cancel solicita o cancelamento do documento autorizado, com justificativa.
func (c *HTTPClient) Cancel(ctx context.Context, creds Credentials, ref, reason string) (*CancelResult, error) {
	base, err := c.baseURL(creds.Environment)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(cancelRequest{Justificativa: reason})
	if err != nil {
		return nil, fmt.Errorf("gateway: serializar justificativa: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v2/nfe/%s", base, url.PathEscape(ref))
	status, raw, err := c.do(ctx, creds, http.MethodDelete, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var resp cancelResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("gateway: resposta de cancelamento inválida: %w", err)
	}
	return &CancelResult{
		Status:     resp.Status,
		HTTPStatus: status,
		RawBody:    raw,
	}, nil
}

// FetchArtifact baixa os bytes crus de um artefato (DANFE ou XML autorizado).
// path pode ser absoluto ou relativo à URL base do ambiente.
func (c *HTTPClient) FetchArtifact(ctx context.Context, creds Credentials, path string) ([]byte, error) {
	endpoint := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		base, err := c.baseURL(creds.Environment)
		if err != nil {
			return nil, err
		}
		endpoint = base + "/" + strings.TrimLeft(path, "/")
	}
	_, raw, err := c.do(ctx, creds, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// do executa a chamada com a credencial do tenant e devolve status e corpo.
// Qualquer não-2xx vira *Error com o corpo preservado literalmente.
func (c *HTTPClient) do(ctx context.Context, creds Credentials, method, endpoint string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("gateway: criar request: %w", err)
	}
	// Credencial estática por tenant no esquema basic-auth (token como usuário).
	req.SetBasicAuth(creds.Token, "")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, fmt.Errorf("gateway: timeout ou cancelamento: %w", ctx.Err())
		}
		return 0, nil, fmt.Errorf("gateway: chamada HTTP falhou: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20)) // max 4 MB
	if err != nil {
		return 0, nil, fmt.Errorf("gateway: ler resposta: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, raw, &Error{Status: resp.StatusCode, Body: string(raw)}
	}
	return resp.StatusCode, raw, nil
}

// baseURL seleciona a URL base pelo ambiente do tenant.
func (c *HTTPClient) baseURL(environment string) (string, error) {
	switch environment {
	case entity.EnvironmentSandbox:
		return c.sandboxBaseURL, nil
	case entity.EnvironmentProduction:
		return c.productionBaseURL, nil
	default:
		return "", fmt.Errorf("gateway: ambiente desconhecido %q (usar 'sandbox' ou 'production')", environment)
	}
}
