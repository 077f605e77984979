//go:build ignore

// This script mints a custody API bearer token for manual testing with curl.
// Run with: go run scripts/generate-bearer.go

package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
	Kid string `json:"kid"`
}

type claims struct {
	Iss string `json:"iss"`
	Aud string `json:"aud"`
	Iat int64  `json:"iat"`
	Exp int64  `json:"exp"`
}

func main() {
	keyID := os.Getenv("CUSTODY_API_KEY_ID")
	secret := os.Getenv("CUSTODY_API_KEY_SECRET")
	baseURL := os.Getenv("CUSTODY_BASE_URL")
	if keyID == "" || secret == "" || baseURL == "" {
		fmt.Fprintln(os.Stderr, "set CUSTODY_API_KEY_ID, CUSTODY_API_KEY_SECRET and CUSTODY_BASE_URL")
		os.Exit(1)
	}

	now := time.Now()
	token, err := sign(header{Alg: "HS256", Typ: "JWT", Kid: keyID}, claims{
		Iss: keyID,
		Aud: baseURL,
		Iat: now.Unix(),
		Exp: now.Add(time.Minute).Unix(),
	}, secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Custody API Bearer ===")
	fmt.Println()
	fmt.Println(token)
	fmt.Println()
	fmt.Printf("curl -H 'Authorization: Bearer %s' %s/v1/accounts\n", token, baseURL)
}

func sign(h header, c claims, secret string) (string, error) {
	hb, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	cb, err := json.Marshal(c)
	if err != nil {
		return "", err
	}

	enc := base64.RawURLEncoding
	signing := enc.EncodeToString(hb) + "." + enc.EncodeToString(cb)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signing))

	return strings.Join([]string{signing, enc.EncodeToString(mac.Sum(nil))}, "."), nil
}
