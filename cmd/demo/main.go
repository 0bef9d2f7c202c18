// Command demo runs the SDK end to end inside one process: a stub credits
// backend over HTTP, a parent adapter minting JWTs, and an embedded client
// bootstrapping through the frame protocol.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/developersupreme/supreme-ai-sdk-sub000/channel"
	"github.com/developersupreme/supreme-ai-sdk-sub000/credits"
	"github.com/developersupreme/supreme-ai-sdk-sub000/parent"
	"github.com/developersupreme/supreme-ai-sdk-sub000/users"
	"github.com/golang-jwt/jwt/v5"
)

const (
	parentOrigin = "https://host.demo.local"
	childOrigin  = "https://credits.demo.local"
	jwtSecret    = "demo-signing-secret"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running demo: %s\n", err)
	}
	log.Printf("Demo finished\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname("credit sdk")

	backend, baseURL, err := startBackend()
	if err != nil {
		return err
	}
	defer shutdown(backend)

	parentEnd, childEnd := channel.NewPipe(parentOrigin, childOrigin)

	host, err := parent.New(parentEnd, demoTokenProvider, parent.Options{
		AllowedOrigins: []string{childOrigin},
		OnReady: func(ready *channel.SystemReady) {
			log.Printf("parent: child ready in %s mode\n", ready.Mode)
		},
		OnBalanceUpdate: func(balance int64) {
			log.Printf("parent: balance now %d\n", balance)
		},
		OnStatus: func(status *channel.StatusResponse) {
			log.Printf("parent: child status initialized=%t balance=%d\n", status.Initialized, status.Balance)
		},
	})
	if err != nil {
		return fmt.Errorf("parent.New: %w", err)
	}
	defer host.Close()

	client, err := credits.New(credits.Config{
		APIBaseURL:     baseURL + "/api/jwt",
		AuthURL:        baseURL + "/api/secure-jwt",
		AllowedOrigins: []string{parentOrigin},
		Debug:          true,
	}, credits.Dependencies{Transport: childEnd})
	if err != nil {
		return fmt.Errorf("credits.New: %w", err)
	}
	defer client.Destroy()

	client.On(credits.EventCreditsSpent, func(payload any) {
		if spent, ok := payload.(credits.SpendEvent); ok {
			log.Printf("sdk: spent %d, balance %d -> %d\n", spent.Amount, spent.Previous, spent.Balance)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.Initialize(ctx); err != nil {
		return fmt.Errorf("client.Initialize: %w", err)
	}

	user := client.User()
	org := client.CurrentOrganization()
	log.Printf("sdk: ready as %s (org %s), balance %d\n", user.Email, org.Name, client.Balance())

	if _, err := client.SpendCredits(ctx, 25, "demo render"); err != nil {
		return fmt.Errorf("SpendCredits: %w", err)
	}
	if _, err := client.AddCredits(ctx, 100, "purchase", "demo top-up"); err != nil {
		return fmt.Errorf("AddCredits: %w", err)
	}

	history, err := client.GetHistory(ctx, 10, 0)
	if err != nil {
		return fmt.Errorf("GetHistory: %w", err)
	}
	log.Printf("sdk: %d transactions on record\n", history.Total)

	if err := host.RequestStatus(); err != nil {
		return fmt.Errorf("RequestStatus: %w", err)
	}

	return client.Logout(ctx)
}

// demoTokenProvider mints a short-lived HS256 token and the user record the
// parent would normally hold from its own login session.
func demoTokenProvider(context.Context) (*parent.TokenGrant, error) {
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "2",
		"email": "demo@supreme.ai",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &parent.TokenGrant{
		Token: token,
		User: &users.User{
			ID:    "2",
			Email: "demo@supreme.ai",
			Name:  "Demo User",
			Organizations: []users.Organization{
				{ID: "5", Name: "Demo Org", SelectedStatus: true, UserRoleIDs: []int64{3}},
				{ID: "9", Name: "Second Org"},
			},
		},
		UserRoleIDs: []int64{3},
	}, nil
}

// startBackend serves a minimal credits backend on a loopback port. One
// mutex-guarded balance, an in-memory ledger, JSON envelopes matching the
// real API.
func startBackend() (*http.Server, string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", fmt.Errorf("net.Listen: %w", err)
	}

	var mu sync.Mutex
	balance := int64(1000)
	var ledger []map[string]any

	ok := func(w http.ResponseWriter, data any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
	}
	mutate := func(w http.ResponseWriter, r *http.Request, sign int64) {
		var req struct {
			Amount      int64  `json:"amount"`
			Description string `json:"description"`
			Type        string `json:"type"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		mu.Lock()
		balance += sign * req.Amount
		tx := map[string]any{
			"id":          fmt.Sprintf("tx-%d", len(ledger)+1),
			"amount":      req.Amount,
			"type":        req.Type,
			"description": req.Description,
			"created_at":  time.Now().Format(time.RFC3339),
		}
		ledger = append(ledger, tx)
		newBalance := balance
		mu.Unlock()

		ok(w, map[string]any{"new_balance": newBalance, "transaction": tx})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/jwt/balance", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		current := balance
		mu.Unlock()
		ok(w, map[string]any{"balance": current})
	})
	mux.HandleFunc("/api/jwt/spend", func(w http.ResponseWriter, r *http.Request) {
		mutate(w, r, -1)
	})
	mux.HandleFunc("/api/jwt/add", func(w http.ResponseWriter, r *http.Request) {
		mutate(w, r, 1)
	})
	mux.HandleFunc("/api/jwt/history", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		entries := append([]map[string]any(nil), ledger...)
		mu.Unlock()
		ok(w, map[string]any{
			"transactions": entries,
			"pagination":   map[string]any{"total": len(entries)},
		})
	})
	mux.HandleFunc("/api/jwt/personas/jwt/list", func(w http.ResponseWriter, r *http.Request) {
		ok(w, []map[string]any{
			{"id": "11", "name": "Analyst"},
			{"id": "12", "name": "Copywriter"},
		})
	})
	mux.HandleFunc("/api/secure-jwt/logout", func(w http.ResponseWriter, r *http.Request) {
		ok(w, map[string]any{})
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("backend: %s\n", err)
		}
	}()
	return server, "http://" + listener.Addr().String(), nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
