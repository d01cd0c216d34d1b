package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"santua/pkg/grpc/santuapb"
	"santua/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

type adminData struct {
	Found    []models.Entry   `json:"hallazgos"`
	Lost     []models.Entry   `json:"busquedas"`
	Stickers []models.Sticker `json:"stickers"`
}

func main() {
	global := flag.NewFlagSet("santua", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}
	rest := func() []string {
		if len(args) > 2 {
			return args[2:]
		}
		return nil
	}

	client := &http.Client{Timeout: 15 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, rest())
	case "found", "lost":
		handleSubmit(ctx, client, *baseURL, cmd, args[1:])
	case "counters":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, *baseURL+"/api/counters", "", nil, &resp); err != nil {
			log.Fatalf("counters failed: %v", err)
		}
		printJSON(resp)
	case "sticker":
		handleSticker(ctx, client, *baseURL, *tokenPath, sub, rest())
	case "admin":
		handleAdmin(ctx, client, *baseURL, *tokenPath, sub, rest())
	case "watch":
		handleWatch(*baseURL, *tokenPath, sub, rest())
	case "rpc":
		handleRPC(ctx, sub, rest())
	case "export":
		handleExport(ctx, client, *baseURL, *tokenPath, sub, rest())
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		payload := map[string]string{"email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		if *username == "" || *email == "" || *password == "" {
			log.Fatal("username, email, and password are required")
		}

		payload := map[string]string{"username": *username, "email": *email, "password": *password}
		var resp authResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/register", "", payload, &resp); err != nil {
			log.Fatalf("register failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("✅ registered and logged in")
	case "logout":
		if token, err := readToken(tokenPath); err == nil && token != "" {
			// revoke server side too; a stale token file is still removed on failure
			if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/logout", token, nil, nil); err != nil {
				log.Printf("server logout failed: %v", err)
			}
		}
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("✅ logged out")
	default:
		log.Fatal("usage: santua auth <login|register|logout>")
	}
}

func handleSubmit(ctx context.Context, client *http.Client, baseURL, kind string, args []string) {
	fs := flag.NewFlagSet(kind, flag.ExitOnError)
	category := fs.String("categoria", "", "document category (DNI, PASAPORTE, ...)")
	nro := fs.String("nro", "", "document number")
	contact := fs.String("contacto", "", "contact (phone in E.164 or free text)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*nro) == "" {
		log.Fatal("nro is required")
	}
	payload := map[string]string{"categoria": *category, "nro": *nro, "contacto": *contact}

	var resp map[string]any
	if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/"+kind, "", payload, &resp); err != nil {
		log.Fatalf("%s failed: %v", kind, err)
	}
	printJSON(resp)
}

func handleSticker(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	fs := flag.NewFlagSet("sticker "+sub, flag.ExitOnError)
	id := fs.String("id", "", "sticker id")
	alias := fs.String("alias", "", "owner alias")
	phone := fs.String("telefono", "", "contact phone (E.164)")
	message := fs.String("mensaje", "", "custom message")
	kind := fs.String("tipo", "", "sticker kind")
	out := fs.String("out", "", "output file for qr")
	size := fs.Int("size", 256, "qr size in pixels")
	_ = fs.Parse(args)

	if *id == "" {
		log.Fatal("sticker id is required")
	}
	base := baseURL + "/api/stickers/" + url.PathEscape(*id)

	switch sub {
	case "show":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, base, "", nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "validate":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, base+"/validate", "", nil, &resp); err != nil {
			log.Fatalf("validate failed: %v", err)
		}
		printJSON(resp)
	case "configure":
		payload := map[string]string{
			"id": *id, "alias": *alias, "telefono": *phone, "mensaje": *message, "tipo": *kind,
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/stickers/configure", "", payload, &resp); err != nil {
			log.Fatalf("configure failed: %v", err)
		}
		printJSON(resp)
	case "pay":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/api/payments/preference", "", map[string]string{"id": *id}, &resp); err != nil {
			log.Fatalf("payment preference failed: %v", err)
		}
		printJSON(resp)
	case "qr":
		path := *out
		if path == "" {
			path = *id + ".png"
		}
		if err := download(ctx, client, fmt.Sprintf("%s/qr.png?size=%d", base, *size), path); err != nil {
			log.Fatalf("qr failed: %v", err)
		}
		log.Printf("✅ wrote %s", path)
	default:
		log.Fatal("usage: santua sticker <show|validate|configure|pay|qr> -id ID")
	}
}

func handleAdmin(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	admin := baseURL + "/api/admin"

	switch sub {
	case "stats":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, admin+"/stats", token, nil, &resp); err != nil {
			log.Fatalf("stats failed: %v", err)
		}
		printJSON(resp)
	case "data":
		var resp adminData
		if err := doJSON(ctx, client, http.MethodGet, admin+"/data", token, nil, &resp); err != nil {
			log.Fatalf("data failed: %v", err)
		}
		printJSON(resp)
	case "delete":
		fs := flag.NewFlagSet("admin delete", flag.ExitOnError)
		key := fs.String("nro", "", "document number")
		which := fs.String("from", "match", "match, found or lost")
		_ = fs.Parse(args)
		if *key == "" {
			log.Fatal("nro is required")
		}
		switch *which {
		case "match", "found", "lost":
		default:
			log.Fatal("-from must be match, found or lost")
		}
		var resp map[string]any
		endpoint := admin + "/" + *which + "/" + url.PathEscape(*key)
		if err := doJSON(ctx, client, http.MethodDelete, endpoint, token, nil, &resp); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		printJSON(resp)
	case "batch":
		fs := flag.NewFlagSet("admin batch", flag.ExitOnError)
		count := fs.Int("cantidad", 10, "stickers to generate")
		kind := fs.String("tipo", "", "sticker kind")
		_ = fs.Parse(args)

		var resp map[string]any
		payload := map[string]any{"cantidad": *count, "tipo": *kind}
		if err := doJSON(ctx, client, http.MethodPost, admin+"/stickers/batch", token, payload, &resp); err != nil {
			log.Fatalf("batch failed: %v", err)
		}
		printJSON(resp)
	case "stickers":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, admin+"/stickers", token, nil, &resp); err != nil {
			log.Fatalf("stickers failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: santua admin <stats|data|delete|batch|stickers>")
	}
}

func handleWatch(baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "tcp":
		fs := flag.NewFlagSet("watch tcp", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP event feed address")
		pretty := fs.Bool("pretty", true, "pretty print JSON events")
		_ = fs.Parse(args)
		for {
			if err := runFeedTCP(*addr, *pretty); err != nil {
				log.Printf("[watch] disconnected: %v", err)
			}
			time.Sleep(1 * time.Second)
		}
	case "ws":
		fs := flag.NewFlagSet("watch ws", flag.ExitOnError)
		wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
		_ = fs.Parse(args)

		endpoint := *wsURL
		if endpoint == "" {
			var err error
			endpoint, err = websocketURL(baseURL, "/ws")
			if err != nil {
				log.Fatalf("ws url: %v", err)
			}
		}
		if err := runWebSocket(endpoint, mustToken(tokenPath)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	default:
		log.Fatal("usage: santua watch <tcp|ws>")
	}
}

func handleRPC(ctx context.Context, sub string, args []string) {
	fs := flag.NewFlagSet("rpc "+sub, flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:9090", "gRPC server address")
	category := fs.String("categoria", "", "document category")
	nro := fs.String("nro", "", "document number")
	contact := fs.String("contacto", "", "contact")
	id := fs.String("id", "", "sticker id")
	_ = fs.Parse(args)

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("grpc dial: %v", err)
	}
	defer conn.Close()
	c := santuapb.NewMatchingClient(conn)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var (
		req *structpb.Struct
		out *structpb.Struct
	)
	switch sub {
	case "found", "lost":
		req, err = structpb.NewStruct(map[string]any{"categoria": *category, "nro": *nro, "contacto": *contact})
		if err != nil {
			log.Fatalf("build request: %v", err)
		}
		if sub == "found" {
			out, err = c.SubmitFound(ctx, req)
		} else {
			out, err = c.SubmitLost(ctx, req)
		}
	case "sticker":
		req, err = structpb.NewStruct(map[string]any{"id": *id})
		if err != nil {
			log.Fatalf("build request: %v", err)
		}
		out, err = c.LookupSticker(ctx, req)
	default:
		log.Fatal("usage: santua rpc <found|lost|sticker>")
	}
	if err != nil {
		log.Fatalf("rpc %s failed: %v", sub, err)
	}
	printJSON(out.AsMap())
}

func handleExport(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	fs := flag.NewFlagSet("export "+sub, flag.ExitOnError)
	out := fs.String("out", "", "output path")
	_ = fs.Parse(args)

	var data adminData
	if err := doJSON(ctx, client, http.MethodGet, baseURL+"/api/admin/data", mustToken(tokenPath), nil, &data); err != nil {
		log.Fatalf("export failed: %v", err)
	}

	switch sub {
	case "json":
		path := *out
		if path == "" {
			path = "data/santua.json"
		}
		if err := writeJSON(path, data); err != nil {
			log.Fatalf("write json failed: %v", err)
		}
		log.Printf("✅ exported %d found, %d lost, %d stickers to %s", len(data.Found), len(data.Lost), len(data.Stickers), path)
	case "csv":
		path := *out
		if path == "" {
			path = "data/entries.csv"
		}
		if err := writeEntriesCSV(path, data); err != nil {
			log.Fatalf("write csv failed: %v", err)
		}
		log.Printf("✅ exported %d entries to %s", len(data.Found)+len(data.Lost), path)
	default:
		log.Fatal("usage: santua export <json|csv>")
	}
}

func runFeedTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[watch] connected to %s", addr)
	reader := bufio.NewScanner(conn)
	for reader.Scan() {
		line := reader.Bytes()
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := reader.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

func runWebSocket(wsURL, token string) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[watch] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func download(ctx context.Context, client *http.Client, endpoint, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s failed: %s", endpoint, strings.TrimSpace(string(data)))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, resp.Body)
	return err
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func writeEntriesCSV(path string, data adminData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"kind", "categoria", "nro", "contacto", "created_at"}); err != nil {
		return err
	}
	write := func(kind string, entries []models.Entry) error {
		for _, e := range entries {
			if err := writer.Write([]string{kind, e.Category, e.Key, e.Contact, e.CreatedAt.Format(time.RFC3339)}); err != nil {
				return err
			}
		}
		return nil
	}
	if err := write("found", data.Found); err != nil {
		return err
	}
	if err := write("lost", data.Lost); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.santua-token.json"
	}
	return filepath.Join(home, ".santua", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("santua <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|logout")
	fmt.Println("  found|lost -categoria C -nro N -contacto X")
	fmt.Println("  counters")
	fmt.Println("  sticker show|validate|configure|pay|qr -id ID")
	fmt.Println("  admin stats|data|delete|batch|stickers")
	fmt.Println("  watch tcp|ws")
	fmt.Println("  rpc found|lost|sticker")
	fmt.Println("  export json|csv")
}
