package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
	"github.com/spf13/pflag"
	"github.com/tcriess/lightspeed-code/analysis"
	"github.com/tcriess/lightspeed-code/config"
	"github.com/tcriess/lightspeed-code/globals"
	"github.com/tcriess/lightspeed-code/persistence"
	"github.com/tcriess/lightspeed-code/plugins"
	"github.com/tcriess/lightspeed-code/room"
	"github.com/tcriess/lightspeed-code/types"
	"github.com/tcriess/lightspeed-code/ws"
)

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
	sslCert    = pflag.String("ssl-cert", "", "SSL cert for websocket (optional)")
	sslKey     = pflag.String("ssl-key", "", "SSL key for websocket (optional)")

	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	registry *ws.Registry
	snippets *analysis.Snippets
	// an executor plugin is loaded
	executable bool
)

func main() {
	log.SetFlags(0)

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}

	globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))

	persister, err := persistence.NewPersister(globalConfig)
	if err != nil {
		panic(err)
	}
	if persister == nil {
		globals.AppLogger.Warn("no persistence configured, rooms are lost when they are evicted")
	}

	collaborators, err := plugins.Load(globalConfig, globals.AppLogger.Named("plugins"))
	if err != nil {
		panic(err)
	}
	defer plugin.CleanupClients()
	executable = collaborators.Executor != nil

	snippets, err = analysis.NewSnippets(globalConfig.SnippetsConfig.Dir, globals.AppLogger.Named("snippets"))
	if err != nil {
		panic(err)
	}

	registry, err = ws.NewRegistry(globalConfig, persister, collaborators)
	if err != nil {
		panic(err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-c
		globals.AppLogger.Info("shutting down", "signal", sig.String())
		// flush all rooms before the persister goes away
		registry.Close()
		if persister != nil {
			if err := persister.Close(); err != nil {
				globals.AppLogger.Error("could not close persister", "error", err)
			}
		}
		collaborators.Close()
		plugin.CleanupClients()
		os.Exit(0)
	}()

	setupRoutes()
	// start HTTP server
	globals.AppLogger.Info("listening", "addr", globalConfig.Addr)
	if *sslCert != "" && *sslKey != "" {
		err = http.ListenAndServeTLS(globalConfig.Addr, *sslCert, *sslKey, nil)
	} else {
		err = http.ListenAndServe(globalConfig.Addr, nil)
	}
	globals.AppLogger.Error("stopped listening", "error", err)
}

func setupRoutes() {
	router := mux.NewRouter()
	router.HandleFunc("/ws", websocketHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms", roomsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms/{room}/files", filesHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/rooms/{room}/files/{filename:.+}", fileHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/languages", languagesHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/snippets/{language}", snippetsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/analyze", analyzeHandler).Methods(http.MethodPost)
	http.Handle("/", router)
}

// Handle incoming websockets. The room is chosen by the join intent, a connection may move between rooms.
func websocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		globals.AppLogger.Error("websocket upgrade error", "error", err)
		return
	}
	registry.Serve(conn)
}

// roomsHandler lists the rooms currently held in memory.
func roomsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, registry.Rooms())
}

func filesHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]
	files, err := registry.Files(roomName)
	if err != nil {
		globals.AppLogger.Error("could not list files", "room", roomName, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// fileHandler returns a single file, with its content.
func fileHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	f, err := registry.File(vars["room"], vars["filename"])
	if errors.Is(err, room.ErrFileNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		globals.AppLogger.Error("could not get file", "room", vars["room"], "file", vars["filename"], "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func languagesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.LanguageInfos(executable))
}

func snippetsHandler(w http.ResponseWriter, r *http.Request) {
	lang, ok := types.ParseLanguage(mux.Vars(r)["language"])
	if !ok {
		writeJSON(w, http.StatusOK, []analysis.Snippet{})
		return
	}
	writeJSON(w, http.StatusOK, snippets.Get(lang))
}

type analyzeRequest struct {
	Code     string         `json:"code"`
	Language types.Language `json:"language"`
}

type analyzeResponse struct {
	Analysis    types.CodeMetrics  `json:"analysis"`
	Suggestions []types.Suggestion `json:"suggestions"`
}

func analyzeHandler(w http.ResponseWriter, r *http.Request) {
	req := analyzeRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	lang, ok := types.ParseLanguage(string(req.Language))
	if !ok {
		lang = types.LanguagePython
	}
	metrics, suggestions := analysis.Analyze(req.Code, lang)
	writeJSON(w, http.StatusOK, analyzeResponse{Analysis: metrics, Suggestions: suggestions})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		globals.AppLogger.Error("could not write response", "error", err)
	}
}
