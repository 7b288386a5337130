package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPicksLogMailerWithoutKey(t *testing.T) {
	_, ok := New(Config{}, nil).(*LogMailer)
	assert.True(t, ok)

	_, ok = New(Config{APIKey: "SG.key", FromAddress: "noreply@dtu.ac.in"}, nil).(*SendGridMailer)
	assert.True(t, ok)
}

func TestLogMailerKeepsMessages(t *testing.T) {
	m := NewLogMailer(nil)
	require.NoError(t, m.Send(context.Background(), Message{To: "a@dtu.ac.in", Subject: "Code", Text: "123456"}))

	sent := m.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "123456", sent[0].Text)
}

func TestSendGridMailerPostsV3Payload(t *testing.T) {
	var captured map[string]interface{}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sendgridEndpoint, r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer(Config{APIKey: "SG.key", FromName: "Timetable", FromAddress: "noreply@dtu.ac.in"}, nil).WithHost(srv.URL)
	err := m.Send(context.Background(), Message{To: "student@dtu.ac.in", Subject: "Your code", Text: "123456"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer SG.key", auth)
	personalizations, ok := captured["personalizations"].([]interface{})
	require.True(t, ok)
	require.Len(t, personalizations, 1)
	first := personalizations[0].(map[string]interface{})
	assert.Equal(t, "[Timetable] Your code", first["subject"])
}

func TestSendGridMailerReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	m := NewSendGridMailer(Config{APIKey: "SG.bad", FromAddress: "noreply@dtu.ac.in"}, nil).WithHost(srv.URL)
	err := m.Send(context.Background(), Message{To: "student@dtu.ac.in", Subject: "Code", Text: "1"})
	assert.Error(t, err)
}
