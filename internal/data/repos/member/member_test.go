package member

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kindredlabs/kindred-backend/internal/data/repos/testutil"
	types "github.com/kindredlabs/kindred-backend/internal/domain"
)

func TestMemberRepo_CreateAndGet(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewMemberRepo(db, testutil.Logger(t))
	ctx := context.Background()

	m := &types.Member{
		Platform: "telegram",
		Handle:   uuid.NewString(),
		Status:   types.StatusOnboarding,
	}
	if err := repo.Create(ctx, tx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.ID == uuid.Nil {
		t.Fatalf("Create must assign an id")
	}

	got, err := repo.GetByID(ctx, tx, m.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Handle != m.Handle || got.Status != types.StatusOnboarding {
		t.Fatalf("GetByID: unexpected result: %+v", got)
	}

	byHandle, err := repo.GetByPlatformHandle(ctx, tx, "telegram", m.Handle)
	if err != nil {
		t.Fatalf("GetByPlatformHandle: %v", err)
	}
	if byHandle.ID != m.ID {
		t.Fatalf("GetByPlatformHandle: got %s, want %s", byHandle.ID, m.ID)
	}

	if _, err := repo.GetByID(ctx, tx, uuid.New()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetByID (missing): expected ErrRecordNotFound, got %v", err)
	}
}

func TestMemberRepo_CreateIfAbsent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewMemberRepo(db, testutil.Logger(t))
	ctx := context.Background()

	handle := uuid.NewString()
	first := &types.Member{Platform: "web", Handle: handle, Status: types.StatusOnboarding}
	inserted, err := repo.CreateIfAbsent(ctx, tx, first)
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if !inserted {
		t.Fatalf("first CreateIfAbsent should insert")
	}

	dup := &types.Member{Platform: "web", Handle: handle, Status: types.StatusActive}
	inserted, err = repo.CreateIfAbsent(ctx, tx, dup)
	if err != nil {
		t.Fatalf("CreateIfAbsent (dup): %v", err)
	}
	if inserted {
		t.Fatalf("duplicate CreateIfAbsent must not insert")
	}

	got, err := repo.GetByPlatformHandle(ctx, tx, "web", handle)
	if err != nil {
		t.Fatalf("GetByPlatformHandle: %v", err)
	}
	if got.Status != types.StatusOnboarding {
		t.Fatalf("duplicate insert must not overwrite: got status %s", got.Status)
	}

	// Same handle on another platform is a different member.
	other := &types.Member{Platform: "discord", Handle: handle, Status: types.StatusOnboarding}
	inserted, err = repo.CreateIfAbsent(ctx, tx, other)
	if err != nil {
		t.Fatalf("CreateIfAbsent (other platform): %v", err)
	}
	if !inserted {
		t.Fatalf("same handle on a different platform should insert")
	}
}

func TestMemberRepo_UpdateStatusFrom(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewMemberRepo(db, testutil.Logger(t))
	ctx := context.Background()

	m := testutil.SeedMember(t, ctx, tx, types.StatusActive)

	ok, err := repo.UpdateStatusFrom(ctx, tx, m.ID, types.StatusActive, types.StatusMatched)
	if err != nil {
		t.Fatalf("UpdateStatusFrom: %v", err)
	}
	if !ok {
		t.Fatalf("expected transition to win")
	}

	// A second writer that still believes the member is active loses.
	ok, err = repo.UpdateStatusFrom(ctx, tx, m.ID, types.StatusActive, types.StatusMatched)
	if err != nil {
		t.Fatalf("UpdateStatusFrom (stale): %v", err)
	}
	if ok {
		t.Fatalf("stale transition must not win")
	}

	got, err := repo.GetByID(ctx, tx, m.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.StatusMatched {
		t.Fatalf("status = %s, want matched", got.Status)
	}
}

func TestMemberRepo_ListIDsByStatuses(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewMemberRepo(db, testutil.Logger(t))
	ctx := context.Background()

	active := testutil.SeedMember(t, ctx, tx, types.StatusActive)
	group := testutil.SeedMember(t, ctx, tx, types.StatusGroupMember)
	onboarding := testutil.SeedMember(t, ctx, tx, types.StatusOnboarding)

	ids, err := repo.ListIDsByStatuses(ctx, tx, []types.MemberStatus{types.StatusActive, types.StatusGroupMember})
	if err != nil {
		t.Fatalf("ListIDsByStatuses: %v", err)
	}

	found := map[uuid.UUID]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found[active.ID] || !found[group.ID] {
		t.Fatalf("expected active and group members in result")
	}
	if found[onboarding.ID] {
		t.Fatalf("onboarding member must not appear")
	}
}

func TestMemberRepo_AppendStatusEvent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewMemberRepo(db, testutil.Logger(t))
	ctx := context.Background()

	m := testutil.SeedMember(t, ctx, tx, types.StatusOnboarding)
	ev := &types.StatusEvent{
		MemberID:   m.ID,
		FromStatus: types.StatusOnboarding,
		ToStatus:   types.StatusUnverifiedMember,
		Reason:     "intake complete",
	}
	if err := repo.AppendStatusEvent(ctx, tx, ev); err != nil {
		t.Fatalf("AppendStatusEvent: %v", err)
	}

	var count int64
	if err := tx.WithContext(ctx).Model(&types.StatusEvent{}).
		Where("member_id = ?", m.ID).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}
}
