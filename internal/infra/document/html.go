package document

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

//go:embed templates/policy.html
var templateFS embed.FS

var policyTemplate = template.Must(template.New("policy.html").Funcs(template.FuncMap{
	"money": money,
}).ParseFS(templateFS, "templates/policy.html"))

type htmlView struct {
	Brand string
	*domain.PolicyDocument
}

// RenderHTML renders a printable HTML policy summary.
func (r *Renderer) RenderHTML(doc *domain.PolicyDocument) ([]byte, error) {
	var buf bytes.Buffer
	if err := policyTemplate.Execute(&buf, htmlView{Brand: r.brand, PolicyDocument: doc}); err != nil {
		return nil, fmt.Errorf("render policy html: %w", err)
	}
	return buf.Bytes(), nil
}
