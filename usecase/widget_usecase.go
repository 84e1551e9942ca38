package usecase

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"text/template"
)

type IWidgetUsecase interface {
	Script(companyID string) ([]byte, error)
}

type widgetUsecase struct {
	chatURL string
	tmpl    *template.Template
}

func NewWidgetUsecase(chatURL string) IWidgetUsecase {
	return &widgetUsecase{
		chatURL: strings.TrimRight(chatURL, "/"),
		tmpl:    template.Must(template.New("widget").Parse(widgetScript)),
	}
}

// Script renders the embeddable chat bubble. Values are JS-string escaped, so
// a hostile companyId cannot break out of the literal.
func (u *widgetUsecase) Script(companyID string) ([]byte, error) {
	data := struct {
		CompanyID string
		ChatURL   string
	}{CompanyID: companyID}
	if companyID != "" {
		data.ChatURL = u.chatURL + "/" + url.PathEscape(companyID)
	}
	var buf bytes.Buffer
	if err := u.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render widget script: %w", err)
	}
	return buf.Bytes(), nil
}

const widgetScript = `(function() {
  var companyId = "{{js .CompanyID}}";
  if (!companyId) return;
  if (window.__aiThorWidget) return;
  window.__aiThorWidget = true;

  var bubble = document.createElement('div');
  bubble.style.position = 'fixed';
  bubble.style.bottom = '20px';
  bubble.style.right = '20px';
  bubble.style.width = '60px';
  bubble.style.height = '60px';
  bubble.style.backgroundColor = '#0084FF';
  bubble.style.borderRadius = '50%';
  bubble.style.cursor = 'pointer';
  bubble.style.boxShadow = '0 4px 12px rgba(0,0,0,0.15)';
  bubble.style.display = 'flex';
  bubble.style.alignItems = 'center';
  bubble.style.justifyContent = 'center';
  bubble.style.zIndex = '9999';
  bubble.innerHTML = '<svg width="30" height="30" viewBox="0 0 24 24" fill="white"><path d="M20 2H4c-1.1 0-2 .9-2 2v18l4-4h14c1.1 0 2-.9 2-2V4c0-1.1-.9-2-2-2z"/></svg>';

  var chatWindow = document.createElement('div');
  chatWindow.style.position = 'fixed';
  chatWindow.style.bottom = '90px';
  chatWindow.style.right = '20px';
  chatWindow.style.width = '350px';
  chatWindow.style.height = '500px';
  chatWindow.style.backgroundColor = 'white';
  chatWindow.style.borderRadius = '12px';
  chatWindow.style.boxShadow = '0 5px 20px rgba(0,0,0,0.2)';
  chatWindow.style.display = 'none';
  chatWindow.style.flexDirection = 'column';
  chatWindow.style.zIndex = '9999';
  chatWindow.style.overflow = 'hidden';

  var frame = document.createElement('iframe');
  frame.src = "{{js .ChatURL}}";
  frame.title = 'Chat';
  frame.style.border = '0';
  frame.style.width = '100%';
  frame.style.height = '100%';
  chatWindow.appendChild(frame);

  document.body.appendChild(bubble);
  document.body.appendChild(chatWindow);

  bubble.addEventListener('click', function() {
    chatWindow.style.display = chatWindow.style.display === 'none' ? 'flex' : 'none';
  });
})();
`
