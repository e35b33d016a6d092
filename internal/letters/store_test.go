package letters_test

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/JaimeStill/missive/internal/audit"
	"github.com/JaimeStill/missive/internal/letters"
	"github.com/JaimeStill/missive/internal/reviewers"
	"github.com/JaimeStill/missive/pkg/pagination"
)

// memStore is an in-memory letters.Store. Units of work run one at a time and
// operate on copies that replace the committed state only on success.
type memStore struct {
	mu          sync.Mutex
	letters     map[uuid.UUID]letters.Letter
	assignments map[uuid.UUID][]reviewers.Assignment
	actions     []audit.Entry
	appendErr   error
}

func newMemStore() *memStore {
	return &memStore{
		letters:     make(map[uuid.UUID]letters.Letter),
		assignments: make(map[uuid.UUID][]reviewers.Assignment),
	}
}

func (m *memStore) Do(_ context.Context, fn func(letters.UnitOfWork) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := &memUnit{
		letters:     maps.Clone(m.letters),
		assignments: make(map[uuid.UUID][]reviewers.Assignment, len(m.assignments)),
		actions:     slices.Clone(m.actions),
		appendErr:   m.appendErr,
	}
	for id, as := range m.assignments {
		u.assignments[id] = slices.Clone(as)
	}

	if err := fn(u); err != nil {
		return err
	}

	m.letters = u.letters
	m.assignments = u.assignments
	m.actions = u.actions
	return nil
}

// failAppends makes every later audit append return err, failing the unit
// of work after its other writes. A nil err restores normal behavior.
func (m *memStore) failAppends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErr = err
}

func (m *memStore) Find(_ context.Context, id uuid.UUID) (*letters.Letter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.letters[id]
	if !ok {
		return nil, letters.ErrNotFound
	}
	return &l, nil
}

func (m *memStore) List(
	_ context.Context,
	page pagination.PageRequest,
	f letters.Filters,
) (*pagination.PageResult[letters.Letter], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []letters.Letter
	for _, l := range m.letters {
		if f.Status != nil && l.Status != *f.Status {
			continue
		}
		if f.SubmittedBy != nil && l.SubmittedBy != *f.SubmittedBy {
			continue
		}
		if f.NextActionBy != nil && (l.NextActionByID == nil || *l.NextActionByID != *f.NextActionBy) {
			continue
		}
		if f.Participant != nil && !reviewers.HasUser(m.assignments[l.ID], *f.Participant) {
			continue
		}
		if f.Viewer != nil && l.SubmittedBy != *f.Viewer && !reviewers.HasUser(m.assignments[l.ID], *f.Viewer) {
			continue
		}
		if page.Search != nil && !strings.Contains(strings.ToLower(l.Title), strings.ToLower(*page.Search)) {
			continue
		}
		out = append(out, l)
	}

	slices.SortFunc(out, func(a, b letters.Letter) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	total := len(out)
	start := min(page.Offset(), total)
	end := min(start+page.PageSize, total)

	result := pagination.NewPageResult(out[start:end], total, page.Page, page.PageSize)
	return &result, nil
}

type memUnit struct {
	letters     map[uuid.UUID]letters.Letter
	assignments map[uuid.UUID][]reviewers.Assignment
	actions     []audit.Entry
	appendErr   error
}

func (u *memUnit) Letters() letters.LetterRepository         { return memLetters{u} }
func (u *memUnit) Assignments() letters.AssignmentRepository { return memAssignments{u} }
func (u *memUnit) Actions() letters.ActionRepository         { return memActions{u} }

type memLetters struct{ u *memUnit }

func (r memLetters) Lock(_ context.Context, id uuid.UUID) (*letters.Letter, error) {
	l, ok := r.u.letters[id]
	if !ok {
		return nil, letters.ErrNotFound
	}
	return &l, nil
}

func (r memLetters) Insert(_ context.Context, l *letters.Letter) error {
	if _, ok := r.u.letters[l.ID]; ok {
		return letters.ErrDuplicate
	}
	r.u.letters[l.ID] = *l
	return nil
}

func (r memLetters) Update(_ context.Context, l *letters.Letter) error {
	if _, ok := r.u.letters[l.ID]; !ok {
		return letters.ErrNotFound
	}
	r.u.letters[l.ID] = *l
	return nil
}

func (r memLetters) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.u.letters[id]; !ok {
		return letters.ErrNotFound
	}
	delete(r.u.letters, id)
	delete(r.u.assignments, id)
	r.u.actions = slices.DeleteFunc(r.u.actions, func(e audit.Entry) bool {
		return e.LetterID == id
	})
	return nil
}

type memAssignments struct{ u *memUnit }

func (r memAssignments) ListByLetter(_ context.Context, letterID uuid.UUID) ([]reviewers.Assignment, error) {
	as := slices.Clone(r.u.assignments[letterID])
	slices.SortFunc(as, func(a, b reviewers.Assignment) int {
		return cmp.Compare(a.SequenceOrder, b.SequenceOrder)
	})
	return as, nil
}

func (r memAssignments) Insert(_ context.Context, as []reviewers.Assignment) error {
	for _, a := range as {
		for _, existing := range r.u.assignments[a.LetterID] {
			if existing.UserID == a.UserID || existing.SequenceOrder == a.SequenceOrder {
				return reviewers.ErrDuplicate
			}
		}
		r.u.assignments[a.LetterID] = append(r.u.assignments[a.LetterID], a)
	}
	return nil
}

func (r memAssignments) Update(_ context.Context, a reviewers.Assignment) error {
	as := r.u.assignments[a.LetterID]
	for i := range as {
		if as[i].ID == a.ID {
			as[i] = a
			return nil
		}
	}
	return reviewers.ErrNotFound
}

type memActions struct{ u *memUnit }

func (r memActions) Append(_ context.Context, e audit.Entry) error {
	if r.u.appendErr != nil {
		return r.u.appendErr
	}
	r.u.actions = append(r.u.actions, e)
	return nil
}

func (r memActions) List(_ context.Context, letterID uuid.UUID, order audit.Order) ([]audit.Entry, error) {
	var out []audit.Entry
	for _, e := range r.u.actions {
		if e.LetterID == letterID {
			out = append(out, e)
		}
	}
	if order == audit.Descending {
		slices.Reverse(out)
	}
	return out, nil
}
