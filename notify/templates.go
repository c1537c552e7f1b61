package notify

import (
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/goliatone/go-errors"
	verifyreset "github.com/goliatone/go-verify-reset"
)

// Template is a subject and an HTML body, both pongo2 sources.
type Template struct {
	Subject string
	Body    string
}

// DefaultTemplates has one template per notification action.
var DefaultTemplates = map[string]Template{
	verifyreset.NotifyResendVerifySignup: {
		Subject: "Confirm your email",
		Body: `<h2>Confirm your email</h2>
<p>Follow <a href="{{ link }}">this link</a> or enter the code <b>{{ short_token }}</b>.</p>`,
	},
	verifyreset.NotifyVerifySignup: {
		Subject: "Your email is confirmed",
		Body:    `<p>Thanks {{ user.Username|default:user.Email }}, your email is confirmed.</p>`,
	},
	verifyreset.NotifySendResetPwd: {
		Subject: "Reset your password",
		Body: `<h2>Password reset</h2>
<p>Follow <a href="{{ link }}">this link</a> or enter the code <b>{{ short_token }}</b>.</p>
<p>The code expires at {{ expires }}.</p>`,
	},
	verifyreset.NotifyResetPwd: {
		Subject: "Your password was reset",
		Body:    `<p>Your password was reset. If this was not you, contact support.</p>`,
	},
	verifyreset.NotifyPasswordChange: {
		Subject: "Your password was changed",
		Body:    `<p>Your password was changed. If this was not you, contact support.</p>`,
	},
	verifyreset.NotifyEmailChange: {
		Subject: "Confirm your new email",
		Body: `{% if link %}<p>Confirm {{ new_email }} by following <a href="{{ link }}">this link</a> or entering the code <b>{{ short_token }}</b>.</p>
{% else %}<p>Your email was changed to {{ new_email }}.</p>{% endif %}`,
	},
}

// Renderer compiles and caches templates.
type Renderer struct {
	templates map[string]Template

	mu       sync.Mutex
	compiled map[string][2]*pongo2.Template
}

// NewRenderer creates a renderer. Missing actions fall back to
// DefaultTemplates.
func NewRenderer(templates map[string]Template) *Renderer {
	merged := map[string]Template{}
	for k, v := range DefaultTemplates {
		merged[k] = v
	}
	for k, v := range templates {
		merged[k] = v
	}
	return &Renderer{
		templates: merged,
		compiled:  map[string][2]*pongo2.Template{},
	}
}

// Render executes the template for action.
func (r *Renderer) Render(action string, data pongo2.Context) (subject, body string, err error) {
	tpls, err := r.compile(action)
	if err != nil {
		return "", "", err
	}

	if subject, err = tpls[0].Execute(data); err != nil {
		return "", "", errors.Wrap(err, errors.CategoryInternal, "failed to render subject").
			WithMetadata(map[string]any{"action": action})
	}

	if body, err = tpls[1].Execute(data); err != nil {
		return "", "", errors.Wrap(err, errors.CategoryInternal, "failed to render body").
			WithMetadata(map[string]any{"action": action})
	}

	return subject, body, nil
}

func (r *Renderer) compile(action string) ([2]*pongo2.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tpls, ok := r.compiled[action]; ok {
		return tpls, nil
	}

	src, ok := r.templates[action]
	if !ok {
		return [2]*pongo2.Template{}, errors.New("no template for action "+action, errors.CategoryNotFound)
	}

	subject, err := pongo2.FromString(src.Subject)
	if err != nil {
		return [2]*pongo2.Template{}, errors.Wrap(err, errors.CategoryInternal, "invalid subject template")
	}

	body, err := pongo2.FromString(src.Body)
	if err != nil {
		return [2]*pongo2.Template{}, errors.Wrap(err, errors.CategoryInternal, "invalid body template")
	}

	tpls := [2]*pongo2.Template{subject, body}
	r.compiled[action] = tpls
	return tpls, nil
}
