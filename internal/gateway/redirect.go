package gateway

import (
	"fmt"
	"html/template"
	"io"

	"github.com/avstore/storefront/domain"
)

// redirectPage is the standard POST-redirect trampoline: a hidden form
// carrying the provider's fields, auto-submitted to the external action URL
// the moment the page loads. The browser leaves with POST semantics and no
// secrets ever appear in a query string.
var redirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head><title>Redirecting to payment…</title></head>
<body onload="document.forms[0].submit()">
<p>Redirecting you to the payment provider…</p>
<form method="POST" action="{{.ActionURL}}">
{{- range $name, $value := .Fields}}
<input type="hidden" name="{{$name}}" value="{{$value}}">
{{- end}}
<noscript><button type="submit">Continue to payment</button></noscript>
</form>
</body>
</html>
`))

// WriteFormRedirect renders the auto-submitting form for an alternate
// payment redirect.
func WriteFormRedirect(w io.Writer, redirect domain.FormRedirect) error {
	if redirect.ActionURL == "" {
		return fmt.Errorf("form redirect: empty action url")
	}
	if err := redirectPage.Execute(w, redirect); err != nil {
		return fmt.Errorf("render form redirect: %w", err)
	}
	return nil
}
