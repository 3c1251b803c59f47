package console

import (
	"context"
	"errors"
	"net/url"

	"github.com/sirupsen/logrus"
)

// DefaultPageSize is the table page size used when a config leaves it zero.
const DefaultPageSize = 10

// ErrBusy is returned when an operation is re-entered while a previous call
// is still in flight. The triggering control stays disabled until the
// pending call resolves.
var ErrBusy = errors.New("operation already in progress")

// ValidationError carries the user-facing message of a rejected form. The
// dialog stays open so the user can correct the input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Notifier receives user-facing outcome messages.
type Notifier interface {
	Success(message string)
	Error(message string)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}

// Config parameterizes a Controller for one entity type.
type Config[T any] struct {
	Store    *Store[T]
	ItemName string        // user-facing noun for notifications
	Empty    func() T      // zero-value item for the add form
	ID       func(T) int64 // id accessor
	// Validate returns a user-facing message, or "" when the item may be
	// saved. Optional.
	Validate func(item T, editMode bool) string
	PageSize int
	Notifier Notifier
	Log      logrus.FieldLogger
}

// Controller is the reusable state machine behind every reference-data
// screen: list loading, a client-side filtered view, the add/edit dialog,
// save, and delete confirmation. The filtered view is always derived from
// the last successfully fetched full cache; search never re-queries the
// store.
type Controller[T any] struct {
	cfg Config[T]

	items        []T // full cache
	view         []T // filtered view
	filterActive bool
	page         int // 1-based

	dialogOpen bool
	editMode   bool
	form       T
	saving     bool

	confirmingDelete bool
	deleting         bool
	pendingDeleteID  int64
	hasPendingDelete bool
}

// NewController builds a controller from its config.
func NewController[T any](cfg Config[T]) *Controller[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Notifier == nil {
		cfg.Notifier = nopNotifier{}
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	return &Controller[T]{cfg: cfg, page: 1}
}

// Fetch replaces both the full cache and the filtered view with the store's
// current list, resets pagination to page 1 and clears the filter-active
// flag. On failure both collections end up empty; there is no retry.
func (c *Controller[T]) Fetch(ctx context.Context) error {
	items, err := c.cfg.Store.ListAll(ctx, nil)
	if err != nil {
		c.items = nil
		c.view = nil
		c.filterActive = false
		c.page = 1
		c.cfg.Log.WithError(err).Warnf("loading %s list failed", c.cfg.ItemName)
		return err
	}
	c.items = items
	c.view = items
	c.filterActive = false
	c.page = 1
	return nil
}

// FetchWith is Fetch with extra query parameters for screens that narrow
// the server-side list.
func (c *Controller[T]) FetchWith(ctx context.Context, query url.Values) error {
	items, err := c.cfg.Store.ListAll(ctx, query)
	if err != nil {
		c.items = nil
		c.view = nil
		c.filterActive = false
		c.page = 1
		c.cfg.Log.WithError(err).Warnf("loading %s list failed", c.cfg.ItemName)
		return err
	}
	c.items = items
	c.view = items
	c.filterActive = false
	c.page = 1
	return nil
}

// ApplySearch filters the full cache through the predicate and shows the
// result. Filtering is client-side only.
func (c *Controller[T]) ApplySearch(predicate func(items []T) []T) {
	c.view = predicate(c.items)
	c.filterActive = true
	c.page = 1
}

// ClearSearch drops the filter and shows the full cache again.
func (c *Controller[T]) ClearSearch() {
	c.view = c.items
	c.filterActive = false
	c.page = 1
}

// Items returns the full cache.
func (c *Controller[T]) Items() []T { return c.items }

// View returns the filtered view.
func (c *Controller[T]) View() []T { return c.view }

// FilterActive reports whether a search result subset is showing.
func (c *Controller[T]) FilterActive() bool { return c.filterActive }

// OpenAdd opens the dialog with a fresh empty item.
func (c *Controller[T]) OpenAdd() {
	c.editMode = false
	c.form = c.cfg.Empty()
	c.dialogOpen = true
}

// Edit opens the dialog populated with a copy of the item.
func (c *Controller[T]) Edit(item T) {
	c.editMode = true
	c.form = item
	c.dialogOpen = true
}

// CloseDialog abandons the form.
func (c *Controller[T]) CloseDialog() {
	c.dialogOpen = false
}

// Form returns a pointer to the dialog's working copy for input binding.
func (c *Controller[T]) Form() *T { return &c.form }

// DialogOpen reports the dialog state.
func (c *Controller[T]) DialogOpen() bool { return c.dialogOpen }

// EditMode reports whether the dialog is editing an existing item.
func (c *Controller[T]) EditMode() bool { return c.editMode }

// Saving reports whether a save is in flight.
func (c *Controller[T]) Saving() bool { return c.saving }

// Save validates the form and creates or updates the item. On success the
// list is refetched, the dialog closes and a success notification fires. On
// any failure the dialog stays open.
func (c *Controller[T]) Save(ctx context.Context) error {
	if c.saving {
		return ErrBusy
	}
	if c.cfg.Validate != nil {
		if msg := c.cfg.Validate(c.form, c.editMode); msg != "" {
			c.cfg.Notifier.Error(msg)
			return &ValidationError{Message: msg}
		}
	}

	c.saving = true
	defer func() { c.saving = false }()

	var err error
	if c.editMode {
		_, err = c.cfg.Store.Update(ctx, c.cfg.ID(c.form), c.form)
	} else {
		_, err = c.cfg.Store.Create(ctx, c.form)
	}
	if err != nil {
		c.cfg.Log.WithError(err).Warnf("saving %s failed", c.cfg.ItemName)
		c.cfg.Notifier.Error("Operazione non riuscita. Riprovare.")
		return err
	}

	if err := c.Fetch(ctx); err != nil {
		// The mutation landed; a failed refresh only leaves the cache
		// stale until the next load.
		c.cfg.Log.WithError(err).Warn("post-save refresh failed")
	}
	if c.editMode {
		c.cfg.Notifier.Success(c.cfg.ItemName + " modificato correttamente")
	} else {
		c.cfg.Notifier.Success(c.cfg.ItemName + " aggiunto correttamente")
	}
	c.dialogOpen = false
	return nil
}

// RequestDelete records the target and opens the confirmation prompt. No
// network call happens yet.
func (c *Controller[T]) RequestDelete(item T) {
	c.pendingDeleteID = c.cfg.ID(item)
	c.hasPendingDelete = true
	c.confirmingDelete = true
}

// ConfirmingDelete reports whether the confirmation prompt is open.
func (c *Controller[T]) ConfirmingDelete() bool { return c.confirmingDelete }

// CancelDelete closes the prompt without deleting.
func (c *Controller[T]) CancelDelete() {
	c.pendingDeleteID = 0
	c.hasPendingDelete = false
	c.confirmingDelete = false
}

// ConfirmDelete deletes the recorded target. Success refetches and
// notifies; failure surfaces an error. Either way the recorded id is
// cleared and the prompt closes, so a failed delete never leaves a stale
// confirmation on screen.
func (c *Controller[T]) ConfirmDelete(ctx context.Context) error {
	if c.deleting {
		return ErrBusy
	}
	if !c.hasPendingDelete {
		return errors.New("no delete pending")
	}

	c.deleting = true
	id := c.pendingDeleteID
	defer func() {
		c.deleting = false
		c.pendingDeleteID = 0
		c.hasPendingDelete = false
		c.confirmingDelete = false
	}()

	if err := c.cfg.Store.Delete(ctx, id); err != nil {
		c.cfg.Log.WithError(err).Warnf("deleting %s failed", c.cfg.ItemName)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == "REFERENCE_ERROR" {
			c.cfg.Notifier.Error(apiErr.Message)
		} else {
			c.cfg.Notifier.Error("Operazione non riuscita. Riprovare.")
		}
		return err
	}

	if err := c.Fetch(ctx); err != nil {
		c.cfg.Log.WithError(err).Warn("post-delete refresh failed")
	}
	c.cfg.Notifier.Success(c.cfg.ItemName + " eliminato correttamente")
	return nil
}

// Page returns the current 1-based page number.
func (c *Controller[T]) Page() int { return c.page }

// SetPage moves to the given page, clamped to the valid range.
func (c *Controller[T]) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	if max := c.PageCount(); page > max && max > 0 {
		page = max
	}
	c.page = page
}

// PageCount returns ceil(len(view)/pageSize).
func (c *Controller[T]) PageCount() int {
	n := len(c.view)
	if n == 0 {
		return 0
	}
	return (n + c.cfg.PageSize - 1) / c.cfg.PageSize
}

// PageItems returns the slice of the filtered view on the current page.
func (c *Controller[T]) PageItems() []T {
	start := (c.page - 1) * c.cfg.PageSize
	if start >= len(c.view) {
		return nil
	}
	end := start + c.cfg.PageSize
	if end > len(c.view) {
		end = len(c.view)
	}
	return c.view[start:end]
}
