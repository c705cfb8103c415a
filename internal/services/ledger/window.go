package ledger

import (
	"fmt"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// WindowPolicy chooses the date window a recompute covers.
type WindowPolicy struct {
	focusDays   int
	defaultDays int
	now         func() time.Time
}

// NewWindowPolicy creates a policy: focusDays either side of a focal date, or
// the trailing defaultDays ending today when there is none.
func NewWindowPolicy(focusDays, defaultDays int) *WindowPolicy {
	if focusDays <= 0 {
		focusDays = 30
	}
	if defaultDays <= 0 {
		defaultDays = 180
	}
	return &WindowPolicy{focusDays: focusDays, defaultDays: defaultDays, now: time.Now}
}

func (p *WindowPolicy) today() string {
	return common.FormatDate(p.now().UTC())
}

// Resolve returns [focal-focusDays, focal+focusDays], or the trailing default
// window when focal is empty.
func (p *WindowPolicy) Resolve(focal string) models.DateWindow {
	if focal == "" {
		today := p.today()
		return models.DateWindow{From: common.AddDays(today, -p.defaultDays), To: today}
	}
	return models.DateWindow{From: common.AddDays(focal, -p.focusDays), To: common.AddDays(focal, p.focusDays)}
}

// Override applies explicit bounds on top of a resolved window. Empty bounds
// leave the window side unchanged.
func Override(w models.DateWindow, from, to string) (models.DateWindow, error) {
	if from != "" {
		d, ok := common.NormalizeDate(from)
		if !ok {
			return w, fmt.Errorf("%w: invalid from date %q", common.ErrInvalidInput, from)
		}
		w.From = d
	}
	if to != "" {
		d, ok := common.NormalizeDate(to)
		if !ok {
			return w, fmt.Errorf("%w: invalid to date %q", common.ErrInvalidInput, to)
		}
		w.To = d
	}
	if w.From != "" && w.To != "" && w.From > w.To {
		return w, fmt.Errorf("%w: from %s is after to %s", common.ErrInvalidInput, w.From, w.To)
	}
	return w, nil
}
