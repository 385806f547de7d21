package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/fiscal-pro/internal/domain/entity"
	"github.com/tu-usuario/fiscal-pro/internal/domain/fiscal"
	"github.com/tu-usuario/fiscal-pro/internal/infrastructure/gateway"
)

// ──────────────────────────────────────────────────────────────────────────────
// Testes do cliente HTTP do gateway de emissão, contra um servidor falso
// (httptest.Server). Cobrem autenticação, idempotência via ref na query,
// seleção de ambiente e transporte fiel de erros não-2xx.
// ──────────────────────────────────────────────────────────────────────────────

const testToken = "token-sandbox-abc"

func sandboxCreds() gateway.Credentials {
	return gateway.Credentials{Token: testToken, Environment: entity.EnvironmentSandbox}
}

func newClient(sandboxURL, productionURL string) *gateway.HTTPClient {
	return gateway.NewHTTPClient(gateway.Config{
		SandboxBaseURL:    sandboxURL,
		ProductionBaseURL: productionURL,
	})
}

func minimalPayload() *fiscal.DocumentPayload {
	return &fiscal.DocumentPayload{
		NaturezaOperacao: "Venda de mercadoria",
		CNPJEmitente:     "11222333000181",
	}
}

// ── Submit ────────────────────────────────────────────────────────────────────

func TestSubmit_EnviaRefETokenBasicAuth(t *testing.T) {
	var gotRef, gotUser, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRef = r.URL.Query().Get("ref")
		gotUser, _, _ = r.BasicAuth()
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"processando_autorizacao","ref":"PED-0042-1"}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "http://producao.invalido")
	result, err := c.Submit(context.Background(), sandboxCreds(), minimalPayload(), "PED-0042-1")
	require.NoError(t, err)

	assert.Equal(t, "/v2/nfe", gotPath)
	assert.Equal(t, "PED-0042-1", gotRef, "a ref de idempotência vai na query string")
	assert.Equal(t, testToken, gotUser, "o token do tenant vai como usuário do basic-auth")
	assert.Equal(t, gateway.StatusProcessando, result.Status)
	assert.Equal(t, http.StatusAccepted, result.HTTPStatus)
}

func TestSubmit_CorpoEhOPayloadSerializado(t *testing.T) {
	var gotBody fiscal.DocumentPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"status":"processando_autorizacao"}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	_, err := c.Submit(context.Background(), sandboxCreds(), minimalPayload(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, "11222333000181", gotBody.CNPJEmitente)
}

// TestSubmit_RejeicaoPreservaCorpo: um 422 do gateway vira *gateway.Error com o
// corpo literal, para a trilha de auditoria e a resposta ao cliente.
func TestSubmit_RejeicaoPreservaCorpo(t *testing.T) {
	const rejection = `{"codigo":"validacao","mensagem":"CFOP invalido para a operacao"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(rejection))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	_, err := c.Submit(context.Background(), sandboxCreds(), minimalPayload(), "ref-1")

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusUnprocessableEntity, gwErr.Status)
	assert.Equal(t, rejection, gwErr.Body, "o corpo do erro chega literal, sem reinterpretação")
}

func TestSubmit_AmbienteDesconhecidoNaoChamaRede(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := newClient(srv.URL, srv.URL)
	creds := gateway.Credentials{Token: testToken, Environment: "staging"}
	_, err := c.Submit(context.Background(), creds, minimalPayload(), "ref-1")

	require.Error(t, err)
	assert.False(t, called, "ambiente inválido deve falhar antes de qualquer chamada")
}

// TestSubmit_SelecionaURLPorAmbiente: sandbox e produção apontam para bases
// distintas; a credencial do tenant decide qual é usada.
func TestSubmit_SelecionaURLPorAmbiente(t *testing.T) {
	sandboxHits, productionHits := 0, 0
	sandbox := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sandboxHits++
		_, _ = w.Write([]byte(`{"status":"processando_autorizacao"}`))
	}))
	defer sandbox.Close()
	production := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		productionHits++
		_, _ = w.Write([]byte(`{"status":"processando_autorizacao"}`))
	}))
	defer production.Close()

	c := newClient(sandbox.URL, production.URL)

	_, err := c.Submit(context.Background(), sandboxCreds(), minimalPayload(), "ref-1")
	require.NoError(t, err)
	prodCreds := gateway.Credentials{Token: testToken, Environment: entity.EnvironmentProduction}
	_, err = c.Submit(context.Background(), prodCreds, minimalPayload(), "ref-2")
	require.NoError(t, err)

	assert.Equal(t, 1, sandboxHits)
	assert.Equal(t, 1, productionHits)
}

// ── QueryStatus ───────────────────────────────────────────────────────────────

func TestQueryStatus_MapeiaCamposDeAutorizacao(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/nfe/PED-0042-1", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"status": "autorizado",
			"numero": "991",
			"chave_nfe": "35260311222333000181550010000009911000009910",
			"caminho_danfe": "/arquivos/danfe/991.pdf",
			"caminho_xml_nota_fiscal": "/arquivos/xml/991.xml"
		}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	result, err := c.QueryStatus(context.Background(), sandboxCreds(), "PED-0042-1")
	require.NoError(t, err)

	assert.Equal(t, gateway.StatusAutorizado, result.Status)
	assert.Equal(t, "991", result.AuthorityNumber)
	assert.Equal(t, "35260311222333000181550010000009911000009910", result.AccessKey)
	assert.Equal(t, "/arquivos/danfe/991.pdf", result.PDFPath)
	assert.Equal(t, "/arquivos/xml/991.xml", result.XMLPath)
}

func TestQueryStatus_RejeicaoTrazMensagemDaAutoridade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"erro_autorizacao","mensagem_sefaz":"Rejeicao 693: NCM inexistente"}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	result, err := c.QueryStatus(context.Background(), sandboxCreds(), "ref-1")
	require.NoError(t, err, "rejeição pela autoridade é resposta 2xx do gateway, não erro de transporte")

	assert.Equal(t, gateway.StatusErro, result.Status)
	assert.Equal(t, "Rejeicao 693: NCM inexistente", result.Message)
}

// ── Cancel ────────────────────────────────────────────────────────────────────

func TestCancel_EnviaJustificativaNoDelete(t *testing.T) {
	var gotMethod string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"status":"cancelado"}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	result, err := c.Cancel(context.Background(), sandboxCreds(), "PED-0042-1", "Pedido duplicado pelo cliente")
	require.NoError(t, err)

	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "Pedido duplicado pelo cliente", gotBody["justificativa"])
	assert.Equal(t, gateway.StatusCancelado, result.Status)
}

// ── FetchArtifact ─────────────────────────────────────────────────────────────

func TestFetchArtifact_CaminhoRelativoResolvePelaBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/arquivos/danfe/991.pdf", r.URL.Path)
		user, _, _ := r.BasicAuth()
		assert.Equal(t, testToken, user, "o download do artefato também é autenticado")
		_, _ = w.Write([]byte("%PDF-1.7 conteudo"))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	raw, err := c.FetchArtifact(context.Background(), sandboxCreds(), "/arquivos/danfe/991.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 conteudo"), raw)
}

func TestFetchArtifact_NaoEncontradoRetornaErro(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"mensagem":"arquivo nao encontrado"}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	_, err := c.FetchArtifact(context.Background(), sandboxCreds(), "/arquivos/xml/999.xml")

	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusNotFound, gwErr.Status)
}
