package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/mdrsync/internal/mdr"
)

// resolveNamespace finds the single released namespace carrying the
// engine's designation under role.
func (e *Engine) resolveNamespace(ctx context.Context, role mdr.Role) (mdr.Namespace, error) {
	listing, err := e.remote.Namespaces(ctx)
	if err != nil {
		return mdr.Namespace{}, err
	}

	var matches []mdr.Namespace
	for _, ns := range listing[role] {
		if ns.Identification.Status == mdr.StatusReleased && ns.HasDesignation(e.namespace) {
			matches = append(matches, ns)
		}
	}
	if len(matches) != 1 {
		return mdr.Namespace{}, &mdr.NamespaceResolutionError{
			Designation: e.namespace,
			Role:        role,
			Matches:     len(matches),
		}
	}
	return matches[0], nil
}

// ensureNamespace resolves the write namespace, creating it when it does
// not exist. The bool reports whether it was created.
func (e *Engine) ensureNamespace(ctx context.Context) (mdr.Namespace, bool, error) {
	ns, err := e.resolveNamespace(ctx, mdr.RoleWrite)
	if err == nil {
		e.logger.Info("namespace exists", "urn", ns.Identification.URN)
		return ns, false, nil
	}

	var nsErr *mdr.NamespaceResolutionError
	if !errors.As(err, &nsErr) || !nsErr.NotFound() {
		return mdr.Namespace{}, false, err
	}
	if e.namespaceDefinition == "" {
		return mdr.Namespace{}, false, mdr.NewConfigurationErrorf(
			"namespace %q does not exist and no namespace definition is configured", e.namespace)
	}

	e.logger.Warn("namespace not found; creating it")
	if err := e.remote.CreateNamespace(ctx, mdr.NewNamespaceRequest(e.namespace, e.namespaceDefinition)); err != nil {
		return mdr.Namespace{}, false, err
	}

	ns, err = e.resolveNamespace(ctx, mdr.RoleWrite)
	if err != nil {
		return mdr.Namespace{}, false, fmt.Errorf("namespace unresolved after creation: %w", err)
	}
	return ns, true, nil
}
