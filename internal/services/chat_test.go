package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/AnshRaj112/econex-backend/internal/models"
	"github.com/AnshRaj112/econex-backend/internal/realtime"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type logisticsFixture struct {
	h         *harness
	user      models.Identity
	collector models.Identity
	req       *models.WasteRequest
}

func acceptedRequest(t *testing.T) logisticsFixture {
	h := newHarness(t)
	f := logisticsFixture{
		h:         h,
		user:      h.entity(models.RoleUser, "amina"),
		collector: h.entity(models.RoleCollector, "kip"),
	}
	f.req = h.createRequest(t, f.user, models.WasteLightweight, 5)
	_, err := h.svc.Accept(context.Background(), f.collector, f.req.ID)
	require.NoError(t, err)
	return f
}

func (f logisticsFixture) send(t *testing.T, from models.Identity, body string) *models.LogisticsMessageEvent {
	t.Helper()
	ev, err := f.h.chat.SendLogistics(context.Background(), SendLogisticsInput{
		RequestID:  f.req.ID,
		SenderID:   from.ID,
		SenderRole: string(from.Role),
		Body:       body,
	})
	require.NoError(t, err)
	return ev
}

func TestLogisticsHistoryKeepsAppendOrder(t *testing.T) {
	f := acceptedRequest(t)
	ctx := context.Background()

	sequence := []models.Identity{f.user, f.collector, f.user, f.user, f.collector}
	for i, from := range sequence {
		f.send(t, from, fmt.Sprintf("message %d", i))
	}

	for _, viewer := range []models.Identity{f.user, f.collector} {
		chat, err := f.h.chat.LogisticsHistory(ctx, f.req.ID, viewer.ID)
		require.NoError(t, err)
		require.Len(t, chat.Messages, 5)
		for i, m := range chat.Messages {
			require.Equal(t, fmt.Sprintf("message %d", i), m.Message)
			require.Equal(t, sequence[i].ID, m.SenderID)
			require.Equal(t, string(sequence[i].Role), m.SenderRole)
			require.False(t, m.IsRead)
		}
	}

	stranger := f.h.entity(models.RoleUser, "stranger")
	_, err := f.h.chat.LogisticsHistory(ctx, f.req.ID, stranger.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.h.chat.LogisticsHistory(ctx, primitive.NewObjectID(), f.user.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLogisticsBroadcastReachesRoomIncludingSender(t *testing.T) {
	f := acceptedRequest(t)
	ctx := context.Background()
	userConn, collectorConn := newTestConn(), newTestConn()

	require.NoError(t, f.h.chat.JoinLogisticsRoom(ctx, userConn, f.user, f.req.ID))
	require.NoError(t, f.h.chat.JoinLogisticsRoom(ctx, collectorConn, f.collector, f.req.ID))

	ev := f.send(t, f.user, "  at the gate  ")
	require.Equal(t, "at the gate", ev.Message)
	f.h.outbox.Flush()

	for _, c := range []*testConn{userConn, collectorConn} {
		got := c.events(realtime.EventNewLogisticsMessage)
		require.Len(t, got, 1)
		rec := got[0].Payload.(*models.LogisticsMessageEvent)
		require.Equal(t, f.req.ID, rec.RequestID)
		require.Equal(t, ev.ID, rec.ID)
	}
}

func TestJoinRoomRequiresParticipation(t *testing.T) {
	f := acceptedRequest(t)
	stranger := f.h.entity(models.RoleCollector, "other")
	conn := newTestConn()

	err := f.h.chat.JoinLogisticsRoom(context.Background(), conn, stranger, f.req.ID)
	require.ErrorIs(t, err, ErrForbidden)
	require.False(t, f.h.rooms.In(realtime.LogisticsRoom(f.req.ID.Hex()), conn))

	err = f.h.chat.JoinLogisticsRoom(context.Background(), conn, stranger, primitive.NewObjectID())
	require.ErrorIs(t, err, ErrNotFound)
}

type failingChatCreate struct{ LogisticsChatStore }

func (failingChatCreate) CreateIfAbsent(context.Context, primitive.ObjectID, primitive.ObjectID, primitive.ObjectID) (bool, error) {
	return false, errors.New("write concern timeout")
}

func TestMissingLogisticsChatIsRecreated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.svc = NewRequestService(h.requests, h.users, failingChatCreate{h.logistics}, h.dispatcher, h.outbox, h.audit)
	h.svc.async = func(f func()) { f() }
	user := h.entity(models.RoleUser, "amina")
	collector := h.entity(models.RoleCollector, "kip")

	req := h.createRequest(t, user, models.WasteLightweight, 5)
	_, err := h.svc.Accept(ctx, collector, req.ID)
	require.NoError(t, err)
	require.Equal(t, 0, h.logistics.Count())

	chat, err := h.chat.LogisticsHistory(ctx, req.ID, collector.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, chat.UserID)
	require.Equal(t, collector.ID, chat.CollectorID)
	require.Empty(t, chat.Messages)
	require.Equal(t, 1, h.logistics.Count())

	pending := h.createRequest(t, user, models.WasteLightweight, 1)
	_, err = h.chat.LogisticsHistory(ctx, pending.ID, user.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, 1, h.logistics.Count())
}

func TestSendLogisticsRejections(t *testing.T) {
	f := acceptedRequest(t)
	ctx := context.Background()
	stranger := f.h.entity(models.RoleUser, "stranger")

	cases := []struct {
		name string
		in   SendLogisticsInput
		want error
	}{
		{"empty body", SendLogisticsInput{RequestID: f.req.ID, SenderID: f.user.ID, SenderRole: "user", Body: "   "}, ErrValidation},
		{"sales role", SendLogisticsInput{RequestID: f.req.ID, SenderID: f.user.ID, SenderRole: "buyer", Body: "hi"}, ErrValidation},
		{"role mismatch", SendLogisticsInput{RequestID: f.req.ID, SenderID: f.user.ID, SenderRole: "collector", Body: "hi"}, ErrForbidden},
		{"non participant", SendLogisticsInput{RequestID: f.req.ID, SenderID: stranger.ID, SenderRole: "user", Body: "hi"}, ErrForbidden},
		{"no session", SendLogisticsInput{RequestID: primitive.NewObjectID(), SenderID: f.user.ID, SenderRole: "user", Body: "hi"}, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.h.chat.SendLogistics(ctx, tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}

	chat, err := f.h.chat.LogisticsHistory(ctx, f.req.ID, f.user.ID)
	require.NoError(t, err)
	require.Empty(t, chat.Messages)
}

func TestConcurrentSendsBroadcastInStoredOrder(t *testing.T) {
	f := acceptedRequest(t)
	ctx := context.Background()
	watcher := newTestConn()
	require.NoError(t, f.h.chat.JoinLogisticsRoom(ctx, watcher, f.user, f.req.ID))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		from := f.user
		if i%2 == 1 {
			from = f.collector
		}
		wg.Add(1)
		go func(i int, from models.Identity) {
			defer wg.Done()
			_, err := f.h.chat.SendLogistics(ctx, SendLogisticsInput{
				RequestID: f.req.ID, SenderID: from.ID, SenderRole: string(from.Role), Body: fmt.Sprint(i),
			})
			errs <- err
		}(i, from)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	f.h.outbox.Flush()

	chat, err := f.h.chat.LogisticsHistory(ctx, f.req.ID, f.user.ID)
	require.NoError(t, err)
	got := watcher.events(realtime.EventNewLogisticsMessage)
	require.Len(t, got, 10)
	for i, m := range chat.Messages {
		require.Equal(t, m.ID, got[i].Payload.(*models.LogisticsMessageEvent).ID)
	}
}

func TestMarkLogisticsRead(t *testing.T) {
	f := acceptedRequest(t)
	ctx := context.Background()
	f.send(t, f.user, "hello")
	f.send(t, f.collector, "on my way")

	chat, err := f.h.chat.LogisticsHistory(ctx, f.req.ID, f.user.ID)
	require.NoError(t, err)

	stranger := f.h.entity(models.RoleUser, "stranger")
	require.ErrorIs(t, f.h.chat.MarkLogisticsRead(ctx, chat.ID, stranger.ID), ErrForbidden)
	require.ErrorIs(t, f.h.chat.MarkLogisticsRead(ctx, primitive.NewObjectID(), f.user.ID), ErrNotFound)

	require.NoError(t, f.h.chat.MarkLogisticsRead(ctx, chat.ID, f.user.ID))
	chat, err = f.h.chat.LogisticsHistory(ctx, f.req.ID, f.user.ID)
	require.NoError(t, err)
	require.False(t, chat.Messages[0].IsRead, "own message stays unread")
	require.True(t, chat.Messages[1].IsRead)

	// A later mark by the same reader never resets anything.
	require.NoError(t, f.h.chat.MarkLogisticsRead(ctx, chat.ID, f.user.ID))
	chat, err = f.h.chat.LogisticsHistory(ctx, f.req.ID, f.user.ID)
	require.NoError(t, err)
	require.True(t, chat.Messages[1].IsRead)
}

type salesFixture struct {
	h         *harness
	collector models.Identity
	buyer     models.Identity
	listing   *models.WasteRequest
}

func listedRequest(t *testing.T) salesFixture {
	h := newHarness(t)
	f := salesFixture{
		h:         h,
		collector: h.entity(models.RoleCollector, "kip"),
		buyer:     h.entity(models.RoleBuyer, "recyclers ltd"),
	}
	f.listing = h.listed(t, h.entity(models.RoleUser, "amina"), f.collector)
	return f
}

func TestInquireTwiceReturnsSameSession(t *testing.T) {
	f := listedRequest(t)
	ctx := context.Background()
	collectorConn := f.h.connect(f.collector)

	first, created, err := f.h.chat.Inquire(ctx, f.buyer, f.listing.ID)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, f.collector.ID, first.CollectorID)

	second, created, err := f.h.chat.Inquire(ctx, f.buyer, f.listing.ID)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	f.h.outbox.Flush()
	require.Len(t, collectorConn.events(realtime.EventNewSalesInquiry), 1)

	other := f.h.entity(models.RoleBuyer, "metals co")
	third, created, err := f.h.chat.Inquire(ctx, other, f.listing.ID)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, first.ID, third.ID)
}

func TestInquireRejections(t *testing.T) {
	f := listedRequest(t)
	ctx := context.Background()

	_, _, err := f.h.chat.Inquire(ctx, f.collector, f.listing.ID)
	require.ErrorIs(t, err, ErrForbidden)

	_, _, err = f.h.chat.Inquire(ctx, f.buyer, primitive.NewObjectID())
	require.ErrorIs(t, err, ErrNotFound)

	pending := f.h.createRequest(t, f.h.entity(models.RoleUser, "u"), models.WasteLightweight, 1)
	_, _, err = f.h.chat.Inquire(ctx, f.buyer, pending.ID)
	require.ErrorIs(t, err, ErrNotFound, "no collector assigned yet")
}

func TestSalesMarkReadFlipsOnlyBuyerMessages(t *testing.T) {
	f := listedRequest(t)
	ctx := context.Background()
	chat, _, err := f.h.chat.Inquire(ctx, f.buyer, f.listing.ID)
	require.NoError(t, err)

	send := func(from models.Identity, body string) {
		_, err := f.h.chat.SendSales(ctx, SendSalesInput{ChatID: chat.ID, SenderID: from.ID, SenderRole: string(from.Role), Body: body})
		require.NoError(t, err)
	}
	send(f.buyer, "still available?")
	send(f.collector, "yes")
	send(f.buyer, "price?")
	send(f.collector, "500 per kg")

	require.NoError(t, f.h.chat.MarkSalesRead(ctx, chat.ID, f.collector.ID))

	got, err := f.h.chat.SalesHistory(ctx, chat.ID, f.collector.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 4)
	for _, m := range got.Messages {
		if m.SenderID == f.buyer.ID {
			require.True(t, m.IsRead)
		} else {
			require.False(t, m.IsRead)
		}
	}
}

func TestSalesRoomAndSendChecks(t *testing.T) {
	f := listedRequest(t)
	ctx := context.Background()
	chat, _, err := f.h.chat.Inquire(ctx, f.buyer, f.listing.ID)
	require.NoError(t, err)

	buyerConn, intruderConn := newTestConn(), newTestConn()
	intruder := f.h.entity(models.RoleBuyer, "intruder")
	require.NoError(t, f.h.chat.JoinSalesRoom(ctx, buyerConn, f.buyer, chat.ID))
	require.ErrorIs(t, f.h.chat.JoinSalesRoom(ctx, intruderConn, intruder, chat.ID), ErrForbidden)

	_, err = f.h.chat.SendSales(ctx, SendSalesInput{ChatID: chat.ID, SenderID: f.buyer.ID, SenderRole: "user", Body: "hi"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.h.chat.SendSales(ctx, SendSalesInput{ChatID: chat.ID, SenderID: f.buyer.ID, SenderRole: "collector", Body: "hi"})
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.h.chat.SendSales(ctx, SendSalesInput{ChatID: chat.ID, SenderID: intruder.ID, SenderRole: "buyer", Body: "hi"})
	require.ErrorIs(t, err, ErrForbidden)

	ev, err := f.h.chat.SendSales(ctx, SendSalesInput{ChatID: chat.ID, SenderID: f.buyer.ID, SenderRole: "buyer", Body: "hi"})
	require.NoError(t, err)
	require.Equal(t, chat.ID, ev.SalesChatID)
	f.h.outbox.Flush()
	require.Len(t, buyerConn.events(realtime.EventNewSalesMessage), 1)
	require.Empty(t, intruderConn.events(realtime.EventNewSalesMessage))

	_, err = f.h.chat.SalesHistory(ctx, chat.ID, intruder.ID)
	require.ErrorIs(t, err, ErrForbidden)
}
