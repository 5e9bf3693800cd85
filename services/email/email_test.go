package emailsvc

import (
	"bytes"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/testutil"
)

func TestNewService(t *testing.T) {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(conf)

	_, ok := NewService(conf, logger).(*consoleService)
	assert.True(t, ok, "test mode uses the console mock")

	conf.TestMode = false
	_, ok = NewService(conf, logger).(*consoleService)
	assert.True(t, ok, "no api key falls back to the console")

	conf.SendgridAPIKey = "key"
	_, ok = NewService(conf, logger).(*sendgridService)
	assert.True(t, ok)
}

func TestConsoleService_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf, testutil.NewLogger(conf))
	out := new(bytes.Buffer)
	svc.out = out

	withAttachment := &core.EmailMessage{
		To:      []mail.Address{{Name: "Jo", Address: "jo@test.cd"}},
		Subject: "Report",
		BodyStr: "see attached",
	}
	require.NoError(t, withAttachment.Attach(strings.NewReader("a,b\n1,2\n"), "report.csv", "text/csv"))

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "jo@test.cd"}}, Subject: "Hello", BodyStr: "hi there"},
		&core.EmailMessage{Subject: "Nobody", BodyStr: "lost"},
		&core.EmailMessage{To: []mail.Address{{Address: "jo@test.cd"}}, Subject: "Empty"},
		withAttachment,
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2, "messages without recipients or content are dropped")
	assert.Equal(t, "Hello", sent[0].Subject)
	assert.Equal(t, "hi there", sent[0].TextContent)

	printed := out.String()
	assert.Contains(t, printed, "Subject: ["+conf.AppName+"] Hello")
	assert.Contains(t, printed, "multipart/mixed")
	assert.Contains(t, printed, "filename=report.csv")

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestSendgridService_prepare(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewSendgridService(conf, testutil.NewLogger(conf))

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Jo", Address: "jo@test.cd"}},
		Cc:          []mail.Address{{Address: "cc@test.cd"}},
		Subject:     "Hello",
		TextContent: "hi",
		HTMLContent: "<p>hi</p>",
	}
	m := svc.prepare(msg)

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "["+conf.AppName+"] Hello", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "jo@test.cd", p.To[0].Address)
	require.Len(t, p.CC, 1)
	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "text/html", m.Content[1].Type)
	assert.Equal(t, conf.DefaultFromEmail().Address, m.From.Address)
}
