package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greendrake/estate/internal/models"
	"greendrake/estate/internal/rules"
	"greendrake/estate/internal/utils"
)

func TestOfferService_CreateAdvancesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, 100000)
	bob := f.partner(t, "bob")

	o := f.offer(t, p.ID, bob.ID, 90000)
	assert.Equal(t, models.OfferPending, o.Status)
	assert.Equal(t, 7, o.Validity)
	assert.True(t, rules.Deadline(o.CreatedAt, 7).Equal(o.DateDeadline))

	got, err := f.properties.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateOfferReceived, got.State)
	assert.Equal(t, 90000.0, got.BestPrice)

	_, err = f.offers.Create(ctx, []OfferInput{{PropertyID: p.ID, PartnerID: bob.ID, Price: 90000}})
	assert.ErrorIs(t, err, rules.ErrValidation)
	assert.EqualError(t, err, rules.MsgOfferNotHighest)

	f.offer(t, p.ID, bob.ID, 95000)
	got, err = f.properties.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateOfferReceived, got.State)
	assert.Equal(t, 95000.0, got.BestPrice)
	assert.Len(t, got.Offers, 2)
}

func TestOfferService_CreateRejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, 100000)
	q := f.property(t, 100000)
	bob := f.partner(t, "bob")

	_, err := f.offers.Create(ctx, []OfferInput{
		{PropertyID: q.ID, PartnerID: bob.ID, Price: 50000},
		{PropertyID: p.ID, PartnerID: bob.ID, Price: 80000},
		{PropertyID: p.ID, PartnerID: bob.ID, Price: 79000},
	})
	assert.EqualError(t, err, rules.MsgOfferNotHighest)

	for _, id := range []utils.SixID{p.ID, q.ID} {
		got, err := f.properties.Get(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, got.Offers)
		assert.Equal(t, models.StateNew, got.State)
	}

	offers, err := f.offers.Create(ctx, []OfferInput{
		{PropertyID: p.ID, PartnerID: bob.ID, Price: 80000},
		{PropertyID: p.ID, PartnerID: bob.ID, Price: 81000},
		{PropertyID: q.ID, PartnerID: bob.ID, Price: 50000},
	})
	require.NoError(t, err)
	assert.Len(t, offers, 3)
	got, err := f.properties.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateOfferReceived, got.State)
}

func TestOfferService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, 100000)
	bob := f.partner(t, "bob")

	cases := []struct {
		name string
		in   []OfferInput
		kind error
	}{
		{"empty batch", nil, rules.ErrUsage},
		{"zero price", []OfferInput{{PropertyID: p.ID, PartnerID: bob.ID, Price: 0}}, rules.ErrValidation},
		{"no partner", []OfferInput{{PropertyID: p.ID, Price: 10}}, rules.ErrValidation},
		{"unknown partner", []OfferInput{{PropertyID: p.ID, PartnerID: utils.NewSixID(), Price: 10}}, rules.ErrValidation},
		{"no property", []OfferInput{{PartnerID: bob.ID, Price: 10}}, rules.ErrValidation},
		{"unknown property", []OfferInput{{PropertyID: utils.NewSixID(), PartnerID: bob.ID, Price: 10}}, rules.ErrValidation},
		{"negative validity", []OfferInput{{PropertyID: p.ID, PartnerID: bob.ID, Price: 10, Validity: ptr(-1)}}, rules.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.offers.Create(ctx, tc.in)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
	_, err := f.offers.Create(ctx, []OfferInput{{PropertyID: p.ID, PartnerID: bob.ID, Price: -5}})
	assert.EqualError(t, err, rules.MsgOfferPricePositive)
}

func TestOfferService_Deadline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, 100000)
	bob := f.partner(t, "bob")

	today := rules.Deadline(time.Now(), 0)
	offers, err := f.offers.Create(ctx, []OfferInput{
		{PropertyID: p.ID, PartnerID: bob.ID, Price: 10, DateDeadline: ptr(utils.NewDate(today.AddDate(0, 0, 12)))},
		{PropertyID: p.ID, PartnerID: bob.ID, Price: 20, DateDeadline: ptr(utils.NewDate(today.AddDate(0, 0, -3)))},
		{PropertyID: p.ID, PartnerID: bob.ID, Price: 30, Validity: ptr(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, 12, offers[0].Validity)
	assert.Equal(t, 0, offers[1].Validity)
	assert.Equal(t, 3, offers[2].Validity)
	assert.True(t, today.AddDate(0, 0, 3).Equal(offers[2].DateDeadline))

	o, err := f.offers.Update(ctx, offers[0].ID, OfferPatch{Validity: ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, o.Validity)
	assert.True(t, today.AddDate(0, 0, 5).Equal(o.DateDeadline))

	o, err = f.offers.Update(ctx, offers[0].ID, OfferPatch{DateDeadline: ptr(utils.NewDate(today.AddDate(0, 0, 9)))})
	require.NoError(t, err)
	assert.Equal(t, 9, o.Validity)

	// applying the same deadline again is a no-op
	o, err = f.offers.Update(ctx, offers[0].ID, OfferPatch{DateDeadline: ptr(utils.NewDate(o.DateDeadline))})
	require.NoError(t, err)
	assert.Equal(t, 9, o.Validity)

	_, err = f.offers.Update(ctx, offers[0].ID, OfferPatch{Price: ptr(0.0)})
	assert.ErrorIs(t, err, rules.ErrValidation)
	o, err = f.offers.Update(ctx, offers[0].ID, OfferPatch{Price: ptr(5.0)})
	require.NoError(t, err)
	assert.Equal(t, 5.0, o.Price)

	_, err = f.offers.Update(ctx, utils.NewSixID(), OfferPatch{Price: ptr(5.0)})
	assert.ErrorIs(t, err, rules.ErrNotFound)
}

func TestOfferService_Accept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, 250000)
	alice := f.partner(t, "alice")
	bob := f.partner(t, "bob")
	o1 := f.offer(t, p.ID, alice.ID, 250000)
	o2 := f.offer(t, p.ID, bob.ID, 260000)

	accepted, err := f.offers.Accept(ctx, []utils.SixID{o2.ID})
	require.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, accepted.Status)

	got, err := f.properties.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateOfferAccepted, got.State)
	assert.Equal(t, 260000.0, got.SellingPrice)
	require.NotNil(t, got.BuyerID)
	assert.Equal(t, bob.ID, *got.BuyerID)

	first, err := f.offers.Get(ctx, o1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferRefused, first.Status)
	second, err := f.offers.Get(ctx, o2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, second.Status)
}

func TestOfferService_AcceptRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, 100000)
	bob := f.partner(t, "bob")
	low := f.offer(t, p.ID, bob.ID, 89000)
	high := f.offer(t, p.ID, bob.ID, 95000)

	_, err := f.offers.Accept(ctx, []utils.SixID{low.ID, high.ID})
	assert.ErrorIs(t, err, rules.ErrUsage)
	assert.EqualError(t, err, rules.MsgAcceptSingle)
	_, err = f.offers.Accept(ctx, nil)
	assert.ErrorIs(t, err, rules.ErrUsage)

	_, err = f.offers.Accept(ctx, []utils.SixID{low.ID})
	assert.ErrorIs(t, err, rules.ErrValidation)
	assert.EqualError(t, err, rules.MsgSellingPriceTooLow)

	// nothing of the rejected acceptance was written
	got, err := f.properties.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateOfferReceived, got.State)
	assert.Nil(t, got.BuyerID)
	for _, o := range got.Offers {
		assert.Equal(t, models.OfferPending, o.Status)
	}

	_, err = f.offers.Accept(ctx, []utils.SixID{utils.NewSixID()})
	assert.ErrorIs(t, err, rules.ErrNotFound)

	_, err = f.offers.Accept(ctx, []utils.SixID{high.ID})
	require.NoError(t, err)
	_, err = f.billing.CreateJournal(ctx, "Customer Invoices", "INV", models.JournalSale)
	require.NoError(t, err)
	require.NoError(t, f.properties.Sell(ctx, []utils.SixID{p.ID}).Err())

	_, err = f.offers.Accept(ctx, []utils.SixID{high.ID})
	assert.ErrorIs(t, err, rules.ErrGuard)
	assert.EqualError(t, err, rules.MsgAcceptOnSold)
}

func TestOfferService_RefuseAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, 100000)
	bob := f.partner(t, "bob")
	a := f.offer(t, p.ID, bob.ID, 95000)
	b := f.offer(t, p.ID, bob.ID, 96000)
	_, err := f.offers.Accept(ctx, []utils.SixID{b.ID})
	require.NoError(t, err)

	// refusing an accepted offer is not prevented
	rs := f.offers.Refuse(ctx, []utils.SixID{a.ID, b.ID, utils.NewSixID()})
	require.Len(t, rs, 3)
	assert.NoError(t, rs[0].Err)
	assert.NoError(t, rs[1].Err)
	assert.ErrorIs(t, rs[2].Err, rules.ErrNotFound)

	offers, err := f.offers.ListForProperty(ctx, p.ID)
	require.NoError(t, err)
	for _, o := range offers {
		assert.Equal(t, models.OfferRefused, o.Status)
	}

	got, err := f.properties.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateOfferAccepted, got.State)

	require.NoError(t, f.offers.Delete(ctx, b.ID))
	got, err = f.properties.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 95000.0, got.BestPrice)
	assert.ErrorIs(t, f.offers.Delete(ctx, b.ID), rules.ErrNotFound)
}

func TestOfferService_AcceptOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, 100000)
	first := f.offer(t, p.ID, f.partner(t, "alice").ID, 95000)
	second := f.offer(t, p.ID, f.partner(t, "bob").ID, 96000)

	_, err := f.offers.Accept(ctx, []utils.SixID{first.ID})
	require.NoError(t, err)

	_, err = f.offers.Accept(ctx, []utils.SixID{second.ID})
	assert.ErrorIs(t, err, rules.ErrGuard)
	assert.EqualError(t, err, rules.MsgOfferAlreadyAccepted)

	// accepting the winner again changes nothing
	again, err := f.offers.Accept(ctx, []utils.SixID{first.ID})
	require.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, again.Status)

	got, err := f.offers.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, got.Status)
	prop, err := f.properties.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 95000.0, prop.SellingPrice)
}

func TestOfferService_ConcurrentAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, 100000)
	offers := []models.Offer{
		f.offer(t, p.ID, f.partner(t, "alice").ID, 95000),
		f.offer(t, p.ID, f.partner(t, "bob").ID, 96000),
	}

	errs := make([]error, len(offers))
	var wg sync.WaitGroup
	for i := range offers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.offers.Accept(ctx, []utils.SixID{offers[i].ID})
		}(i)
	}
	wg.Wait()

	var won, guarded int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case rules.KindOf(err) == rules.KindGuard:
			guarded++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, guarded)

	got, err := f.offers.ListForProperty(ctx, p.ID)
	require.NoError(t, err)
	accepted := 0
	for _, o := range got {
		if o.Status == models.OfferAccepted {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestOfferService_AcceptOnCancelledProperty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, 100000)
	o := f.offer(t, p.ID, f.partner(t, "bob").ID, 95000)
	require.NoError(t, f.properties.Cancel(ctx, []utils.SixID{p.ID}).Err())

	_, err := f.offers.Accept(ctx, []utils.SixID{o.ID})
	assert.ErrorIs(t, err, rules.ErrGuard)
	assert.EqualError(t, err, rules.MsgAcceptOnCancelled)

	got, err := f.properties.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCancelled, got.State)
	assert.Nil(t, got.BuyerID)
}

func TestOfferInput_DateDeadlineJSON(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, 100000)
	bob := f.partner(t, "bob")

	deadline := rules.Deadline(time.Now(), 0).AddDate(0, 0, 4)
	body := `[{"property_id":"` + p.ID.String() + `","partner_id":"` + bob.ID.String() +
		`","price":1000,"date_deadline":"` + deadline.Format(utils.DateLayout) + `"}]`
	var in []OfferInput
	require.NoError(t, json.Unmarshal([]byte(body), &in))

	offers, err := f.offers.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 4, offers[0].Validity)
	assert.True(t, deadline.Equal(offers[0].DateDeadline))
}
