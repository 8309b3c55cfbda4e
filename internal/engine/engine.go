// Package engine synchronizes an MDR namespace with the local flat table.
// Pull downloads released data elements into rows; push creates or updates
// data elements from the main-system rows.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/mdrsync/internal/mdr"
	"github.com/leapstack-labs/mdrsync/internal/reconcile"
	"github.com/leapstack-labs/mdrsync/internal/state"
	"github.com/leapstack-labs/mdrsync/internal/table"
)

// Remote is the subset of the MDR API the engine drives. *mdr.Client
// implements it.
type Remote interface {
	Namespaces(ctx context.Context) (mdr.NamespaceListing, error)
	Members(ctx context.Context, namespaceID string) ([]mdr.Member, error)
	Element(ctx context.Context, urn string) (*mdr.DataElement, error)
	ValueDomain(ctx context.Context, urn string) (*mdr.ValueDomain, error)
	CreateNamespace(ctx context.Context, req mdr.NamespaceRequest) error
	CreateElement(ctx context.Context, element *mdr.DataElement) error
	UpdateElement(ctx context.Context, urn string, element *mdr.DataElement) error
}

// Ledger records runs and their outcomes. *state.SQLiteStore implements it.
type Ledger interface {
	CreateRun(ctx context.Context, direction state.Direction, namespace string) (*state.Run, error)
	CompleteRun(ctx context.Context, id string, status state.RunStatus, errMsg string) error
	RecordAction(ctx context.Context, action *state.Action) error
}

// Engine runs pull and push against one namespace.
type Engine struct {
	remote              Remote
	namespace           string
	namespaceDefinition string
	mainSystem          table.MainSystem
	filter              reconcile.KeyFilter
	ledger              Ledger
	logger              *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// Remote is the MDR API (required).
	Remote Remote
	// Namespace is the designation of the namespace to synchronize (required).
	Namespace string
	// NamespaceDefinition is used when push has to create the namespace.
	NamespaceDefinition string
	// MainSystem selects the rows push treats as canonical. Zero uses i2b2/postgres.
	MainSystem table.MainSystem
	// FHIRPaths restricts both directions to elements carrying exactly one
	// of these fhir-path slot values. Empty disables filtering.
	FHIRPaths []string
	// Ledger records runs (optional).
	Ledger Ledger
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Remote == nil {
		return nil, fmt.Errorf("remote is required")
	}
	if cfg.Namespace == "" {
		return nil, mdr.NewConfigurationError("namespace designation is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Engine{
		remote:              cfg.Remote,
		namespace:           cfg.Namespace,
		namespaceDefinition: cfg.NamespaceDefinition,
		mainSystem:          cfg.MainSystem.OrDefault(),
		filter:              reconcile.KeyFilter{Allowed: cfg.FHIRPaths},
		ledger:              cfg.Ledger,
		logger:              logger.With("namespace", cfg.Namespace),
	}, nil
}

// Stage names where a non-fatal issue was raised.
const (
	StageDecode   = "decode"
	StageSlot     = "slot"
	StageCollapse = "collapse"
	StageEncode   = "encode"
)

// Issue is a non-fatal per-element or per-row problem. The run continued
// with a fallback or skipped the subject.
type Issue struct {
	Designation string `json:"designation"`
	URN         string `json:"urn,omitempty"`
	Stage       string `json:"stage"`
	Err         error  `json:"-"`
}

// Message returns the issue's error text.
func (i Issue) Message() string {
	if i.Err == nil {
		return ""
	}
	return i.Err.Error()
}

func (i Issue) String() string {
	return fmt.Sprintf("%s [%s]: %s", i.Designation, i.Stage, i.Message())
}
