package web

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/hpungsan/tabstash/internal/browser"
	"github.com/hpungsan/tabstash/internal/db"
	"github.com/hpungsan/tabstash/internal/errors"
	"github.com/hpungsan/tabstash/internal/ops"
	"github.com/hpungsan/tabstash/internal/snapshot"
)

// Store is the snapshot store plus change notifications.
type Store interface {
	ops.Store
	Subscribe(fn func(db.Change)) (cancel func())
}

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store    Store
	browsers *browser.Lazy
	renderer *Renderer
	sessions *Sessions
	logger   *slog.Logger

	status statusCache
	writes sync.Mutex

	// watchCtx bounds the browser change watcher started on first connect.
	watchCtx  context.Context
	watchOnce sync.Once
}

// NewHandlers wires the handlers and subscribes the status cache to store
// changes. Canceling ctx stops watching the browser; the returned function
// drops the store subscription.
func NewHandlers(ctx context.Context, store Store, browsers *browser.Lazy, renderer *Renderer, sessions *Sessions, logger *slog.Logger) (*Handlers, func()) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		store:    store,
		browsers: browsers,
		renderer: renderer,
		sessions: sessions,
		logger:   logger,
		watchCtx: ctx,
	}
	cancel := store.Subscribe(func(c db.Change) {
		logger.Debug("snapshot changed", "kind", c.Kind, "revision", c.Revision)
		h.status.Invalidate()
	})
	return h, cancel
}

func (h *Handlers) connect(ctx context.Context) (browser.Browser, error) {
	b, err := h.browsers.Get(ctx)
	if err != nil {
		return nil, errors.NewExternalService("browser.connect", err)
	}
	h.watchOnce.Do(func() {
		n, ok := b.(browser.Notifier)
		if !ok {
			return
		}
		go func() {
			if err := n.Watch(h.watchCtx, h.status.Invalidate); err != nil {
				h.logger.Warn("browser watch stopped", "error", err)
			}
		}()
	})
	return b, nil
}

func (h *Handlers) currentStatus(ctx context.Context) (*ops.StatusOutput, error) {
	b, err := h.connect(ctx)
	if err != nil {
		return nil, err
	}
	return h.status.Get(ctx, func(ctx context.Context) (*ops.StatusOutput, error) {
		return ops.ComputeStatus(ctx, h.store, b)
	})
}

// HandleStatus handles GET /: live tabs and groups against the snapshot.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	vm := h.sessions.Get(w, r)

	status, err := h.currentStatus(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "status", StatusPageData{
		PageData: PageData{
			Title:   "Status",
			Version: h.renderer.version,
			Nav:     "status",
		},
		Status:    status,
		Collapsed: vm.Collapsed(),
		Error:     vm.TakeError(),
	})
}

// HandleStatusJSON handles GET /status.json.
func (h *Handlers) HandleStatusJSON(w http.ResponseWriter, r *http.Request) {
	status, err := h.currentStatus(r.Context())
	if err != nil {
		h.renderer.renderJSONError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, status)
}

// HandleSnapshot handles GET /snapshot: the saved document as markdown.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	h.sessions.Get(w, r)

	result, err := ops.Show(r.Context(), h.store)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "snapshot", SnapshotPageData{
		PageData: PageData{
			Title:   "Snapshot",
			Version: h.renderer.version,
			Nav:     "snapshot",
		},
		Exists:       result.Exists,
		RenderedHTML: h.renderer.renderMarkdown(snapshot.RenderMarkdown(result.Snapshot)),
	})
}

// HandleSave handles POST /save: capture the whole browser.
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	h.withBrowser(w, r, true, func(ctx context.Context, b browser.Browser) (any, error) {
		return ops.SaveAll(ctx, h.store, b)
	})
}

// HandleRestore handles POST /restore: reopen the whole snapshot.
func (h *Handlers) HandleRestore(w http.ResponseWriter, r *http.Request) {
	h.withBrowser(w, r, false, func(ctx context.Context, b browser.Browser) (any, error) {
		return ops.RestoreAll(ctx, h.store, b)
	})
}

// HandleSaveGroup handles POST /groups/save?title=.
func (h *Handlers) HandleSaveGroup(w http.ResponseWriter, r *http.Request) {
	title := r.FormValue("title")
	h.withBrowser(w, r, true, func(ctx context.Context, b browser.Browser) (any, error) {
		return ops.SaveGroup(ctx, h.store, b, ops.SaveGroupInput{Title: title})
	})
}

// HandleRestoreGroup handles POST /groups/restore?title=.
func (h *Handlers) HandleRestoreGroup(w http.ResponseWriter, r *http.Request) {
	title := r.FormValue("title")
	h.withBrowser(w, r, false, func(ctx context.Context, b browser.Browser) (any, error) {
		return ops.RestoreGroup(ctx, h.store, b, ops.RestoreGroupInput{Title: title})
	})
}

// HandleRemoveGroup handles POST /groups/remove?title=.
func (h *Handlers) HandleRemoveGroup(w http.ResponseWriter, r *http.Request) {
	title := r.FormValue("title")
	h.withStore(w, r, func(ctx context.Context) (any, error) {
		return ops.RemoveGroup(ctx, h.store, ops.RemoveGroupInput{Title: title})
	})
}

// HandleRestoreTab handles POST /tabs/restore?url=.
func (h *Handlers) HandleRestoreTab(w http.ResponseWriter, r *http.Request) {
	url := r.FormValue("url")
	h.withBrowser(w, r, false, func(ctx context.Context, b browser.Browser) (any, error) {
		return ops.RestoreTab(ctx, h.store, b, ops.RestoreTabInput{URL: url})
	})
}

// HandleRemoveTab handles POST /tabs/remove?url=.
func (h *Handlers) HandleRemoveTab(w http.ResponseWriter, r *http.Request) {
	url := r.FormValue("url")
	h.withStore(w, r, func(ctx context.Context) (any, error) {
		return ops.RemoveTab(ctx, h.store, ops.RemoveTabInput{URL: url})
	})
}

// HandleSaveTab handles POST /tabs/save with url, title and pinned form fields.
func (h *Handlers) HandleSaveTab(w http.ResponseWriter, r *http.Request) {
	input := ops.SaveTabInput{
		URL:    r.FormValue("url"),
		Title:  r.FormValue("title"),
		Pinned: parseBool(r.FormValue("pinned")),
	}
	h.withStore(w, r, func(ctx context.Context) (any, error) {
		return ops.SaveTab(ctx, h.store, input)
	})
}

// HandleToggle handles POST /groups/toggle?title=: a view-only collapse flag.
func (h *Handlers) HandleToggle(w http.ResponseWriter, r *http.Request) {
	vm := h.sessions.Get(w, r)
	section := r.FormValue("title")
	if _, ok := r.Form["title"]; !ok {
		// "" is the untitled group, so only an absent title is an error.
		h.renderer.renderError(w, r, errors.NewInvalidRequest("title is required"))
		return
	}

	collapsed := vm.Toggle(section)
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"title": section, "collapsed": collapsed})
		return
	}
	redirectHome(w, r)
}

// HandleCloseSession handles POST /session/close: discard this view session.
func (h *Handlers) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		h.sessions.Close(w, c.Value)
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"closed": true})
		return
	}
	redirectHome(w, r)
}

// withBrowser runs an op that needs the browser. Only saves take the write lock.
func (h *Handlers) withBrowser(w http.ResponseWriter, r *http.Request, writes bool, op func(context.Context, browser.Browser) (any, error)) {
	h.act(w, r, writes, func(ctx context.Context) (any, error) {
		b, err := h.connect(ctx)
		if err != nil {
			return nil, err
		}
		return op(ctx, b)
	})
}

// withStore runs an op that edits the document without the browser.
func (h *Handlers) withStore(w http.ResponseWriter, r *http.Request, op func(context.Context) (any, error)) {
	h.act(w, r, true, op)
}

// act runs op and answers with JSON, an htmx redirect, or a redirect back
// to the status page carrying any error in the view session.
func (h *Handlers) act(w http.ResponseWriter, r *http.Request, writes bool, op func(context.Context) (any, error)) {
	vm := h.sessions.Get(w, r)

	if writes {
		h.writes.Lock()
	}
	result, err := op(r.Context())
	if writes {
		h.writes.Unlock()
	}
	h.status.Invalidate()

	if err != nil {
		h.logger.Info("action failed", "path", r.URL.Path, "error", err)
		if wantsJSON(r) || r.Header.Get("HX-Request") == "true" {
			h.renderer.renderError(w, r, err)
			return
		}
		vm.SetError(errorMessage(err))
		redirectHome(w, r)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	redirectHome(w, r)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// errorMessage returns the user-facing text of err.
func errorMessage(err error) string {
	var sErr *errors.StashError
	if stderrors.As(err, &sErr) && sErr.Code != errors.ErrInternal {
		return sErr.Message
	}
	return "an internal error occurred"
}

// parseBool parses a form checkbox or boolean value.
func parseBool(s string) bool {
	return s == "true" || s == "1" || s == "on"
}
