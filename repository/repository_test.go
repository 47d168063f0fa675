package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/akinalp/adminpulse/database"
	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg"
)

var testNow = time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

func openTestDB(c *qt.C) *database.DB {
	db, err := database.New(filepath.Join(c.TempDir(), "repo.db"), database.Migrations())
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { db.Close() })
	return db
}

func createAdmin(c *qt.C, db *database.DB, id string) {
	err := NewSQLiteAdminRepo(db.Conn).Create(context.Background(), &models.AdminUser{
		ID: id, Email: id + "@petshop.test", PasswordHash: "hash", CreatedAt: testNow,
	})
	c.Assert(err, qt.IsNil)
}

func TestAdminRepository(t *testing.T) {
	c := qt.New(t)
	db := openTestDB(c)
	repo := NewSQLiteAdminRepo(db.Conn)
	ctx := context.Background()

	admin := &models.AdminUser{Email: "ops@petshop.test", DisplayName: "Ops", PasswordHash: "hash", CreatedAt: testNow}
	c.Assert(repo.Create(ctx, admin), qt.IsNil)
	c.Assert(admin.ID, qt.Not(qt.Equals), "")

	got, err := repo.GetByEmail(ctx, "ops@petshop.test")
	c.Assert(err, qt.IsNil)
	c.Assert(got.ID, qt.Equals, admin.ID)
	c.Assert(got.CreatedAt.Equal(testNow), qt.IsTrue)

	_, err = repo.GetByID(ctx, "missing")
	c.Assert(err, qt.ErrorIs, pkg.ErrNotFound)

	err = repo.Create(ctx, &models.AdminUser{Email: "ops@petshop.test", PasswordHash: "x", CreatedAt: testNow})
	c.Assert(err, qt.ErrorIs, pkg.ErrAlreadyExists)

	n, err := repo.Count(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 1)
}

func TestNotificationRepository(t *testing.T) {
	c := qt.New(t)
	db := openTestDB(c)
	createAdmin(c, db, "admin-1")
	repo := NewSQLiteNotificationRepo(db.Conn)
	ctx := context.Background()

	url := "/orders/o1"
	for i, id := range []string{"n1", "n2", "n3"} {
		err := repo.Create(ctx, &models.Notification{
			ID: id, AdminUserID: "admin-1", Title: "t", Type: "info", Priority: models.PriorityHigh,
			Category: "orders", ActionURL: &url,
			CreatedAt: testNow.Add(time.Duration(i) * time.Second), UpdatedAt: testNow,
		})
		c.Assert(err, qt.IsNil)
	}

	n, err := repo.GetByID(ctx, "n1")
	c.Assert(err, qt.IsNil)
	c.Assert(n.IsRead, qt.IsFalse)
	c.Assert(n.ReadAt, qt.IsNil)
	c.Assert(*n.ActionURL, qt.Equals, url)
	c.Assert(n.Priority, qt.Equals, models.PriorityHigh)

	readAt := testNow.Add(time.Minute)
	changed, err := repo.MarkRead(ctx, "n1", readAt)
	c.Assert(err, qt.IsNil)
	c.Assert(changed, qt.IsTrue)

	changed, err = repo.MarkRead(ctx, "n1", readAt)
	c.Assert(err, qt.IsNil)
	c.Assert(changed, qt.IsFalse)

	_, err = repo.MarkRead(ctx, "missing", readAt)
	c.Assert(err, qt.ErrorIs, pkg.ErrNotFound)

	n, err = repo.GetByID(ctx, "n1")
	c.Assert(err, qt.IsNil)
	c.Assert(n.IsRead, qt.IsTrue)
	c.Assert(n.ReadAt.Equal(readAt), qt.IsTrue)

	updated, err := repo.MarkAllRead(ctx, "admin-1", readAt)
	c.Assert(err, qt.IsNil)
	c.Assert(updated, qt.HasLen, 2)
	for _, u := range updated {
		c.Assert(u.IsRead, qt.IsTrue)
	}

	c.Assert(repo.Delete(ctx, "n2"), qt.IsNil)
	c.Assert(repo.Delete(ctx, "n2"), qt.ErrorIs, pkg.ErrNotFound)
}

func TestConversationAndMessageRepositories(t *testing.T) {
	c := qt.New(t)
	db := openTestDB(c)
	convs := NewSQLiteConversationRepo(db.Conn)
	msgs := NewSQLiteMessageRepo(db.Conn)
	ctx := context.Background()

	conv := &models.Conversation{UserID: "u1", Status: "pending", LastMessageAt: testNow, CreatedAt: testNow, UpdatedAt: testNow}
	c.Assert(convs.Create(ctx, conv), qt.IsNil)

	for i, sender := range []models.SenderType{models.SenderUser, models.SenderUser, models.SenderAdmin} {
		err := msgs.Create(ctx, &models.Message{
			ConversationID: conv.ID, SenderID: "s", SenderType: sender, Content: "hi", MessageType: "text",
			CreatedAt: testNow.Add(time.Duration(i) * time.Second), UpdatedAt: testNow,
		})
		c.Assert(err, qt.IsNil)
	}

	err := msgs.Create(ctx, &models.Message{ConversationID: "nope", SenderID: "s", SenderType: models.SenderUser,
		Content: "x", MessageType: "text", CreatedAt: testNow, UpdatedAt: testNow})
	c.Assert(err, qt.ErrorIs, pkg.ErrNotFound)

	later := testNow.Add(time.Hour)
	touched, err := convs.Touch(ctx, conv.ID, later)
	c.Assert(err, qt.IsNil)
	c.Assert(touched.LastMessageAt.Equal(later), qt.IsTrue)

	resolved, err := convs.UpdateStatus(ctx, conv.ID, "resolved", later)
	c.Assert(err, qt.IsNil)
	c.Assert(resolved.Status, qt.Equals, "resolved")

	_, err = convs.UpdateStatus(ctx, "missing", "resolved", later)
	c.Assert(err, qt.ErrorIs, pkg.ErrNotFound)

	read, err := msgs.MarkConversationRead(ctx, conv.ID, later)
	c.Assert(err, qt.IsNil)
	c.Assert(read, qt.HasLen, 2)
	c.Assert(read[0].SenderType, qt.Equals, models.SenderUser)
	c.Assert(read[0].ReadAt.Equal(later), qt.IsTrue)

	read, err = msgs.MarkConversationRead(ctx, conv.ID, later)
	c.Assert(err, qt.IsNil)
	c.Assert(read, qt.HasLen, 0)
}

func TestOrderAndAppointmentRepositories(t *testing.T) {
	c := qt.New(t)
	db := openTestDB(c)
	orders := NewSQLiteOrderRepo(db.Conn)
	appts := NewSQLiteAppointmentRepo(db.Conn)
	ctx := context.Background()

	notes := "gift wrap"
	o := &models.Order{UserID: "u1", Status: models.OrderPending, TotalAmount: 42.5, Notes: &notes, CreatedAt: testNow, UpdatedAt: testNow}
	c.Assert(orders.Create(ctx, o), qt.IsNil)

	got, err := orders.UpdateStatus(ctx, o.ID, models.OrderShipped, testNow.Add(time.Minute))
	c.Assert(err, qt.IsNil)
	c.Assert(got.Status, qt.Equals, models.OrderShipped)
	c.Assert(got.TotalAmount, qt.Equals, 42.5)
	c.Assert(*got.Notes, qt.Equals, notes)

	a := &models.Appointment{UserID: "u1", PetID: "p1", AppointmentDate: "2026-02-01", AppointmentTime: "10:30",
		Status: models.AppointmentPending, CreatedAt: testNow, UpdatedAt: testNow}
	c.Assert(appts.Create(ctx, a), qt.IsNil)

	gotA, err := appts.GetByID(ctx, a.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(gotA.Notes, qt.IsNil)
	c.Assert(gotA.AppointmentDate, qt.Equals, "2026-02-01")

	c.Assert(appts.Delete(ctx, a.ID), qt.IsNil)
	_, err = appts.GetByID(ctx, a.ID)
	c.Assert(err, qt.ErrorIs, pkg.ErrNotFound)
}
