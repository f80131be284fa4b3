package services

import (
	"context"
	"testing"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/stretchr/testify/require"
)

func TestLogisticsInboxUnreadAndOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.entity(models.RoleUser, "amina")
	collector := h.entity(models.RoleCollector, "kip")

	older := h.createRequest(t, user, models.WasteLightweight, 1)
	newer := h.createRequest(t, user, models.WasteHeavyweight, 2)
	for _, r := range []*models.WasteRequest{older, newer} {
		_, err := h.svc.Accept(ctx, collector, r.ID)
		require.NoError(t, err)
	}

	// A message on the older chat moves it to the top.
	_, err := h.chat.SendLogistics(ctx, SendLogisticsInput{RequestID: older.ID, SenderID: collector.ID, SenderRole: "collector", Body: "coming at 3"})
	require.NoError(t, err)

	inbox, err := h.inbox.LogisticsInboxForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	require.Equal(t, older.ID, inbox[0].RequestID)
	require.True(t, inbox[0].HasUnread)
	require.False(t, inbox[1].HasUnread)
	require.Equal(t, models.StatusAccepted, inbox[0].Request.Status)
	require.Equal(t, "kip", inbox[0].Counterpart.Name)

	collectorInbox, err := h.inbox.LogisticsInboxForCollector(ctx, collector.ID)
	require.NoError(t, err)
	require.Len(t, collectorInbox, 2)
	require.False(t, collectorInbox[0].HasUnread, "own messages are never unread")
	require.Equal(t, "amina", collectorInbox[0].Counterpart.Name)

	require.NoError(t, h.chat.MarkLogisticsRead(ctx, inbox[0].ID, user.ID))
	inbox, err = h.inbox.LogisticsInboxForUser(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, inbox[0].HasUnread)
}

func TestSalesInboxForBothSides(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	collector := h.entity(models.RoleCollector, "kip")
	buyerA := h.entity(models.RoleBuyer, "a")
	buyerB := h.entity(models.RoleBuyer, "b")
	listing := h.listed(t, h.entity(models.RoleUser, "amina"), collector)

	chatA, _, err := h.chat.Inquire(ctx, buyerA, listing.ID)
	require.NoError(t, err)
	_, _, err = h.chat.Inquire(ctx, buyerB, listing.ID)
	require.NoError(t, err)
	_, err = h.chat.SendSales(ctx, SendSalesInput{ChatID: chatA.ID, SenderID: buyerA.ID, SenderRole: "buyer", Body: "interested"})
	require.NoError(t, err)

	collectorView, err := h.inbox.SalesInbox(ctx, collector.ID)
	require.NoError(t, err)
	require.Len(t, collectorView, 2)
	require.Equal(t, chatA.ID, collectorView[0].ID)
	require.True(t, collectorView[0].HasUnread)
	require.False(t, collectorView[1].HasUnread)
	require.Equal(t, "a", collectorView[0].Counterpart.Name)
	require.Equal(t, "3kg copper wire", collectorView[0].Request.ListingDescription)

	buyerView, err := h.inbox.SalesInbox(ctx, buyerA.ID)
	require.NoError(t, err)
	require.Len(t, buyerView, 1)
	require.False(t, buyerView[0].HasUnread)
	require.Len(t, buyerView[0].Messages, 1)
	require.Equal(t, "kip", buyerView[0].Counterpart.Name)
}

func TestEmptyInboxes(t *testing.T) {
	h := newHarness(t)
	who := h.entity(models.RoleBuyer, "nobody")

	sales, err := h.inbox.SalesInbox(context.Background(), who.ID)
	require.NoError(t, err)
	require.NotNil(t, sales)
	require.Empty(t, sales)
}
