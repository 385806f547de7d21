package gateway

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// VerifyAccessKey confere se o XML autorizado devolvido pelo gateway pertence
// ao documento esperado: a chave de acesso persistida precisa aparecer no
// elemento chNFe do protocolo ou no atributo Id da infNFe.
//
// Guarda contra servir o artefato de outro documento por troca de URI no
// gateway; XML sem chave alguma também é rejeitado.
func VerifyAccessKey(xmlBytes []byte, accessKey string) error {
	if accessKey == "" {
		return fmt.Errorf("artefato: chave de acesso esperada vazia")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return fmt.Errorf("artefato: XML inválido: %w", err)
	}

	var found string
	for _, el := range doc.FindElements("//*") {
		switch {
		case localName(el.Tag) == "chNFe":
			found = strings.TrimSpace(el.Text())
		case localName(el.Tag) == "infNFe":
			// Atributo Id no formato "NFe<chave>".
			if id := el.SelectAttrValue("Id", ""); id != "" {
				found = strings.TrimPrefix(id, "NFe")
			}
		}
		if found != "" {
			break
		}
	}

	if found == "" {
		return fmt.Errorf("artefato: XML sem chave de acesso")
	}
	if found != accessKey {
		return fmt.Errorf("artefato: chave de acesso divergente (esperada %s, recebida %s)", accessKey, found)
	}
	return nil
}

func localName(tag string) string {
	if i := strings.LastIndex(tag, ":"); i >= 0 {
		return tag[i+1:]
	}
	return tag
}
