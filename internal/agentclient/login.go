package agentclient

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"feiyu/internal/utils"
)

// Login exchanges username/password for a token so the agent can be
// started without a pre-issued token.
func Login(serverURL, username, password string, insecure bool) (string, error) {
	body, err := utils.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetRequestURI(strings.TrimRight(serverURL, "/") + "/api/auth/login")
	req.SetBody(body)

	client := &fasthttp.Client{
		TLSConfig: &tls.Config{InsecureSkipVerify: insecure},
	}
	if err := client.DoTimeout(req, resp, 10*time.Second); err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}

	var envelope struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := utils.Unmarshal(resp.Body(), &envelope); err != nil {
		return "", fmt.Errorf("parse login response failed: %w", err)
	}
	if envelope.Code != 0 || envelope.Data.Token == "" {
		return "", fmt.Errorf("login rejected: %s", envelope.Message)
	}
	return envelope.Data.Token, nil
}
