package service

import (
	"fmt"
	"strings"

	"github.com/fanvault/fanvault/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var documentLabels = map[model.KYCDocumentType]string{
	model.KYCDocumentFront:  "frente do documento",
	model.KYCDocumentBack:   "verso do documento",
	model.KYCProofOfAddress: "comprovante de residência",
	model.KYCSelfie:         "selfie com documento",
}

var titleCaser = cases.Title(language.BrazilianPortuguese)

// DocumentLabel is the display name of a KYC document type, e.g.
// "Frente Do Documento".
func DocumentLabel(docType model.KYCDocumentType) string {
	label, ok := documentLabels[docType]
	if !ok {
		label = strings.ReplaceAll(string(docType), "_", " ")
	}
	return titleCaser.String(label)
}

func welcomeEmailTemplate(name, profileURL, appName string) (string, string) {
	subject := fmt.Sprintf("Bem-vindo(a) ao %s!", appName)
	body := fmt.Sprintf(`Olá %s,

Sua conta foi criada com sucesso.

Complete seu perfil: %s

Equipe %s`, name, profileURL, appName)

	return subject, body
}

func kycSubmittedEmailTemplate(name, appName string) (string, string) {
	subject := fmt.Sprintf("Recebemos seus documentos - %s", appName)

	var docs strings.Builder
	for _, docType := range model.KYCDocumentTypes {
		fmt.Fprintf(&docs, "- %s\n", DocumentLabel(docType))
	}

	body := fmt.Sprintf(`Olá %s,

Recebemos os seguintes documentos para verificação da sua identidade:
%s
Você será avisado(a) por e-mail assim que a análise for concluída.

Equipe %s`, name, docs.String(), appName)

	return subject, body
}

func kycReviewedEmailTemplate(name string, docType model.KYCDocumentType, status model.KYCStatus, note, kycURL, appName string) (string, string) {
	label := DocumentLabel(docType)

	if status == model.KYCStatusApproved {
		subject := fmt.Sprintf("Documento aprovado: %s", label)
		body := fmt.Sprintf(`Olá %s,

Seu documento "%s" foi aprovado.

Acompanhe sua verificação: %s

Equipe %s`, name, label, kycURL, appName)
		return subject, body
	}

	reason := ""
	if note != "" {
		reason = fmt.Sprintf("\nMotivo: %s\n", note)
	}
	subject := fmt.Sprintf("Documento recusado: %s", label)
	body := fmt.Sprintf(`Olá %s,

Seu documento "%s" foi recusado.
%s
Envie novamente seus documentos em: %s

Equipe %s`, name, label, reason, kycURL, appName)

	return subject, body
}

func accountDeletedEmailTemplate(name, appName string) (string, string) {
	subject := fmt.Sprintf("Sua conta no %s foi excluída", appName)
	body := fmt.Sprintf(`Olá %s,

Sua conta foi excluída permanentemente do %s, incluindo perfil, mídias e documentos enviados.

Se você não solicitou a exclusão, entre em contato com nosso suporte.

Equipe %s`, name, appName, appName)

	return subject, body
}
