package dashboard

import (
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/AegisSDN/internal/domain"
	"github.com/ghalamif/AegisSDN/internal/ledger"
)

// ChainReader supplies the chain served by the API: a FileView for a
// standalone dashboard, or the live ledger inside the controller.
type ChainReader interface {
	Chain() []*domain.Block
}

type TrafficReader interface {
	Traffic() []domain.TrafficEntry
}

type API struct {
	chain   ChainReader
	traffic TrafficReader
	pub     *ecdsa.PublicKey
}

// NewAPI builds the handler set. traffic and pub may be nil.
func NewAPI(chain ChainReader, traffic TrafficReader, pub *ecdsa.PublicKey) *API {
	return &API{chain: chain, traffic: traffic, pub: pub}
}

func (api *API) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/chain", api.handleChain).Methods("GET")
	router.HandleFunc("/api/chain/{index:[0-9]+}", api.handleBlock).Methods("GET")
	router.HandleFunc("/api/packets", api.handlePackets).Methods("GET")
	router.HandleFunc("/api/verify", api.handleVerify).Methods("GET")
	router.HandleFunc("/healthz", api.handleHealth).Methods("GET")
}

// NewRouter wires the dashboard API and the metrics endpoint for gatherer.
func NewRouter(api *API, gatherer prometheus.Gatherer) *mux.Router {
	router := mux.NewRouter()
	api.RegisterRoutes(router)
	if gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return router
}

func (api *API) blocks() []*domain.Block {
	if api.chain == nil {
		return []*domain.Block{}
	}
	blocks := api.chain.Chain()
	if blocks == nil {
		return []*domain.Block{}
	}
	return blocks
}

func (api *API) handleChain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.blocks())
}

func (api *API) handleBlock(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	blocks := api.blocks()
	if err != nil || idx >= uint64(len(blocks)) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "block not found"})
		return
	}
	writeJSON(w, http.StatusOK, blocks[idx])
}

func (api *API) handlePackets(w http.ResponseWriter, r *http.Request) {
	entries := []domain.TrafficEntry{}
	if api.traffic != nil {
		if t := api.traffic.Traffic(); t != nil {
			entries = t
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

type verifyResponse struct {
	Valid  bool   `json:"valid"`
	Blocks int    `json:"blocks"`
	Error  string `json:"error,omitempty"`
}

func (api *API) handleVerify(w http.ResponseWriter, r *http.Request) {
	blocks := api.blocks()
	resp := verifyResponse{Blocks: len(blocks)}
	if api.pub == nil {
		resp.Error = "no public key configured"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if err := ledger.VerifyChain(blocks, api.pub); err != nil {
		resp.Error = err.Error()
	} else {
		resp.Valid = true
	}
	writeJSON(w, http.StatusOK, resp)
}

func (api *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ChainFunc adapts a function such as (*ledger.Ledger).Blocks to ChainReader.
type ChainFunc func() []*domain.Block

func (f ChainFunc) Chain() []*domain.Block { return f() }

// TrafficFunc adapts a function such as (*snapshot.TrafficLog).Entries to TrafficReader.
type TrafficFunc func() []domain.TrafficEntry

func (f TrafficFunc) Traffic() []domain.TrafficEntry { return f() }
