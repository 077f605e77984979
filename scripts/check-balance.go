//go:build ignore

// This script reads an address balance straight from the chain RPC endpoint,
// useful for checking what the dashboard should display.
// Run with: go run scripts/check-balance.go 0x...
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strings"
)

func main() {
	rpcURL := os.Getenv("CHAIN_RPC_URL")
	if rpcURL == "" {
		rpcURL = "http://localhost:8545"
	}
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: go run scripts/check-balance.go <address>")
		os.Exit(1)
	}
	address := os.Args[1]

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "eth_getBalance",
		"params":  []string{address, "latest"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	resp, err := http.Post(rpcURL, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error calling %s: %v\n", rpcURL, err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var out struct {
		Result string `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding response: %v\n", err)
		os.Exit(1)
	}
	if out.Error != nil {
		fmt.Fprintf(os.Stderr, "RPC error: %s\n", out.Error.Message)
		os.Exit(1)
	}

	wei, ok := new(big.Int).SetString(strings.TrimPrefix(out.Result, "0x"), 16)
	if !ok {
		fmt.Fprintf(os.Stderr, "Bad balance value %q\n", out.Result)
		os.Exit(1)
	}

	eth := new(big.Rat).SetFrac(wei, big.NewInt(1e18))
	fmt.Printf("%s\n", address)
	fmt.Printf("  wei: %s\n", wei)
	fmt.Printf("  eth: %s\n", eth.FloatString(6))
}
