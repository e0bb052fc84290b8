package rental

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/imranpollob/nft-rental-marketplace/internal/clock"
	"github.com/imranpollob/nft-rental-marketplace/internal/escrow"
	"github.com/imranpollob/nft-rental-marketplace/internal/fault"
	"github.com/imranpollob/nft-rental-marketplace/internal/listing"
	"github.com/imranpollob/nft-rental-marketplace/internal/logging"
	"github.com/imranpollob/nft-rental-marketplace/internal/notification"
	"github.com/imranpollob/nft-rental-marketplace/internal/registry"
)

const (
	testController = "rental-scheduler"
	testOwner      = "owner:alice"
	testRenter     = "renter:bob"
	testAsset      = "asset-1"
	testTreasury   = "treasury"
)

type fixture struct {
	svc      *Service
	listings *listing.Service
	ledger   escrow.Ledger
	reg      *registry.Memory
	clk      *clock.Manual
}

// newFixture wires a scheduler over the in-memory backends with one minted
// asset and a listing at 1000/sec, durations [3600, 86400], deposit 100000.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := logging.Discard()

	clk := clock.NewManual(1_000_000)
	reg := registry.NewMemory(clk, testController)
	if err := reg.Mint(ctx, testAsset, testOwner); err != nil {
		t.Fatalf("mint: %v", err)
	}

	listings := listing.NewService(listing.NewMemoryRepository(), reg)
	if _, err := listings.Create(ctx, testOwner, testAsset, listing.Terms{
		PricePerSecond: 1_000,
		MinDuration:    3_600,
		MaxDuration:    86_400,
		Deposit:        100_000,
	}); err != nil {
		t.Fatalf("create listing: %v", err)
	}

	ledger := escrow.NewInMemory(escrow.NewLogGateway(logger))
	svc := NewService(
		NewMemoryRepository(),
		listings,
		ledger,
		reg,
		clk,
		notification.NewLoggerNotifier(logger),
		logger,
		testController,
		500,
		testTreasury,
	)
	return &fixture{svc: svc, listings: listings, ledger: ledger, reg: reg, clk: clk}
}

func (f *fixture) fund(identity string, amount int64) {
	escrow.SeedWithdrawable(f.ledger, identity, amount)
}

// book reserves [start, end) with exactly the required payment attached.
func (f *fixture) book(t *testing.T, start, end int64) Rental {
	t.Helper()
	duration := end - start
	total := duration*1_000 + 100_000
	f.fund(testRenter, total)
	rt, err := f.svc.Book(context.Background(), BookInput{
		Renter:  testRenter,
		AssetID: testAsset,
		Start:   start,
		End:     end,
		Payment: total,
	})
	if err != nil {
		t.Fatalf("book [%d, %d): %v", start, end, err)
	}
	return rt
}

func TestBook_HoldsTotalAndRefundsExcess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(testRenter, 3_800_000)

	// 3600 seconds at 1000/sec plus the 100000 deposit is 3700000; the
	// attached 3800000 overshoots by 100000 which must come straight back.
	rt, err := f.svc.Book(ctx, BookInput{
		Renter:  testRenter,
		AssetID: testAsset,
		Start:   1_000_100,
		End:     1_003_700,
		Payment: 3_800_000,
	})
	if err != nil {
		t.Fatalf("book failed: %v", err)
	}
	if rt.Amount != 3_600_000 || rt.Deposit != 100_000 {
		t.Fatalf("unexpected amounts: amount=%d deposit=%d", rt.Amount, rt.Deposit)
	}
	if rt.Status != StatusBooked {
		t.Fatalf("expected BOOKED, got %s", rt.Status)
	}

	held, _ := f.ledger.Held(ctx, rt.ID)
	if held != 3_700_000 {
		t.Fatalf("expected held 3700000, got %d", held)
	}
	balance, _ := f.ledger.Withdrawable(ctx, testRenter)
	if balance != 100_000 {
		t.Fatalf("expected refund balance 100000, got %d", balance)
	}
}

func TestBook_RejectsInvalidWindows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(testRenter, 10_000_000)

	cases := []struct {
		name       string
		start, end int64
		kind       fault.Kind
	}{
		{"start after end", 1_000_200, 1_000_100, fault.KindValidation},
		{"start equals end", 1_000_100, 1_000_100, fault.KindValidation},
		{"start in past", 999_000, 1_003_700, fault.KindValidation},
		{"below min duration", 1_000_100, 1_000_200, fault.KindValidation},
		{"above max duration", 1_000_100, 1_090_000, fault.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Book(ctx, BookInput{
				Renter:  testRenter,
				AssetID: testAsset,
				Start:   tc.start,
				End:     tc.end,
				Payment: 10_000_000,
			})
			if !fault.Is(err, tc.kind) {
				t.Fatalf("expected %s error, got %v", tc.kind, err)
			}
		})
	}
}

func TestBook_InsufficientPaymentLeavesNothingBehind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(testRenter, 10_000_000)

	_, err := f.svc.Book(ctx, BookInput{
		Renter:  testRenter,
		AssetID: testAsset,
		Start:   1_000_100,
		End:     1_003_700,
		Payment: 3_699_999,
	})
	if !fault.Is(err, fault.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// The slot stays free and the balance untouched.
	balance, _ := f.ledger.Withdrawable(ctx, testRenter)
	if balance != 10_000_000 {
		t.Fatalf("balance changed on rejected booking: %d", balance)
	}
	f.book(t, 1_000_100, 1_003_700)
}

func TestBook_UnfundedPaymentFreesTheSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The request passes validation but the renter's balance cannot cover
	// it, so the interval taken by BookIfFree must be handed back.
	_, err := f.svc.Book(ctx, BookInput{
		Renter:  testRenter,
		AssetID: testAsset,
		Start:   1_000_100,
		End:     1_003_700,
		Payment: 3_700_000,
	})
	if !fault.Is(err, fault.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	f.book(t, 1_000_100, 1_003_700)
}

func TestBook_OverlapConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, 1_010_000, 1_020_000)
	f.fund(testRenter, 100_000_000)

	overlapping := []struct {
		name       string
		start, end int64
	}{
		{"identical", 1_010_000, 1_020_000},
		{"straddles start", 1_005_000, 1_012_000},
		{"straddles end", 1_015_000, 1_025_000},
		{"contained", 1_012_000, 1_016_000},
		{"containing", 1_005_000, 1_025_000},
	}
	for _, tc := range overlapping {
		t.Run(tc.name, func(t *testing.T) {
			before, _ := f.ledger.Withdrawable(ctx, testRenter)
			_, err := f.svc.Book(ctx, BookInput{
				Renter:  testRenter,
				AssetID: testAsset,
				Start:   tc.start,
				End:     tc.end,
				Payment: 100_000_000,
			})
			if !fault.Is(err, fault.KindConflict) {
				t.Fatalf("expected conflict, got %v", err)
			}
			after, _ := f.ledger.Withdrawable(ctx, testRenter)
			if before != after {
				t.Fatalf("rejected booking moved funds: %d -> %d", before, after)
			}
		})
	}
}

func TestBook_AdjacentIntervalsShareBoundary(t *testing.T) {
	f := newFixture(t)
	f.book(t, 1_010_000, 1_020_000)

	// Half-open intervals: a rental ending at T and one starting at T do
	// not overlap, while one starting at T-1 does.
	f.book(t, 1_020_000, 1_030_000)
	f.book(t, 1_002_000, 1_010_000)

	f.fund(testRenter, 100_000_000)
	_, err := f.svc.Book(context.Background(), BookInput{
		Renter:  testRenter,
		AssetID: testAsset,
		Start:   1_019_999,
		End:     1_030_000,
		Payment: 100_000_000,
	})
	if !fault.Is(err, fault.KindConflict) {
		t.Fatalf("expected conflict at end-1, got %v", err)
	}
}

func TestBook_FillsGapBetweenRentals(t *testing.T) {
	f := newFixture(t)
	f.book(t, 1_010_000, 1_020_000)
	f.book(t, 1_030_000, 1_040_000)
	f.book(t, 1_020_000, 1_030_000)
}

func TestBook_InactiveListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.listings.Cancel(ctx, testOwner, testAsset); err != nil {
		t.Fatalf("cancel listing: %v", err)
	}

	f.fund(testRenter, 10_000_000)
	_, err := f.svc.Book(ctx, BookInput{
		Renter:  testRenter,
		AssetID: testAsset,
		Start:   1_000_100,
		End:     1_003_700,
		Payment: 10_000_000,
	})
	if !fault.Is(err, fault.KindConflict) {
		t.Fatalf("expected conflict on inactive listing, got %v", err)
	}
}

func TestBook_StaleListingOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The asset is sold after the listing was published; the stale listing
	// must not book on behalf of the previous owner.
	if err := f.reg.Transfer(ctx, testOwner, testAsset, "owner:carol"); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	f.fund(testRenter, 10_000_000)
	_, err := f.svc.Book(ctx, BookInput{
		Renter:  testRenter,
		AssetID: testAsset,
		Start:   1_000_100,
		End:     1_003_700,
		Payment: 10_000_000,
	})
	if !fault.Is(err, fault.KindConflict) {
		t.Fatalf("expected conflict on stale owner, got %v", err)
	}
}

func TestBook_StaleListingVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l, err := f.listings.Get(ctx, testAsset)
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if _, err := f.listings.Update(ctx, testOwner, testAsset, listing.Terms{
		PricePerSecond: 2_000,
		MinDuration:    3_600,
		MaxDuration:    86_400,
		Deposit:        100_000,
	}); err != nil {
		t.Fatalf("update listing: %v", err)
	}

	f.fund(testRenter, 100_000_000)
	_, err = f.svc.Book(ctx, BookInput{
		Renter:         testRenter,
		AssetID:        testAsset,
		Start:          1_000_100,
		End:            1_003_700,
		Payment:        100_000_000,
		ListingVersion: l.Version,
	})
	if !fault.Is(err, fault.KindConflict) {
		t.Fatalf("expected conflict on stale version, got %v", err)
	}

	// Omitting the version accepts whatever terms are current.
	if _, err := f.svc.Book(ctx, BookInput{
		Renter:  testRenter,
		AssetID: testAsset,
		Start:   1_000_100,
		End:     1_003_700,
		Payment: 100_000_000,
	}); err != nil {
		t.Fatalf("unpinned book failed: %v", err)
	}
}

func TestBook_ImmediateStartChecksIn(t *testing.T) {
	f := newFixture(t)
	f.clk.Set(1_000_100)

	rt := f.book(t, 1_000_100, 1_003_700)
	if rt.Status != StatusCheckedIn {
		t.Fatalf("expected CHECKED_IN on immediate start, got %s", rt.Status)
	}

	grant, ok := f.reg.UsageOf(context.Background(), testAsset)
	if !ok || grant.User != testRenter || grant.Expiry != 1_003_700 {
		t.Fatalf("unexpected grant: %+v ok=%v", grant, ok)
	}
}

func TestBook_ConcurrentOverlapsAdmitOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 8
	for i := 0; i < workers; i++ {
		f.fund(fmt.Sprintf("renter:%d", i), 10_100_000)
	}

	var wg sync.WaitGroup
	results := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.Book(ctx, BookInput{
				Renter:  fmt.Sprintf("renter:%d", i),
				AssetID: testAsset,
				Start:   1_010_000,
				End:     1_020_000,
				Payment: 10_100_000,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range results {
		switch {
		case err == nil:
			succeeded++
		case fault.Is(err, fault.KindConflict):
		default:
			t.Fatalf("worker %d unexpected error: %v", i, err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one booking to win, got %d", succeeded)
	}
}

func TestCheckIn_Gates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rt := f.book(t, 1_010_000, 1_020_000)

	if _, err := f.svc.CheckIn(ctx, "renter:mallory", rt.ID); !fault.Is(err, fault.KindAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if _, err := f.svc.CheckIn(ctx, testRenter, rt.ID); !fault.Is(err, fault.KindState) {
		t.Fatalf("expected too-early state error, got %v", err)
	}

	f.clk.Set(1_010_000)
	got, err := f.svc.CheckIn(ctx, testRenter, rt.ID)
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if got.Status != StatusCheckedIn {
		t.Fatalf("expected CHECKED_IN, got %s", got.Status)
	}

	// Repeating while checked in succeeds without side effects.
	if _, err := f.svc.CheckIn(ctx, testRenter, rt.ID); err != nil {
		t.Fatalf("repeat check-in failed: %v", err)
	}

	grant, ok := f.reg.UsageOf(ctx, testAsset)
	if !ok || grant.User != testRenter {
		t.Fatalf("grant missing after check-in: %+v ok=%v", grant, ok)
	}
}

func TestCheckIn_Expired(t *testing.T) {
	f := newFixture(t)
	rt := f.book(t, 1_010_000, 1_020_000)

	f.clk.Set(1_020_000)
	if _, err := f.svc.CheckIn(context.Background(), testRenter, rt.ID); !fault.Is(err, fault.KindState) {
		t.Fatalf("expected expired state error, got %v", err)
	}
}

func TestCheckIn_UnknownRental(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CheckIn(context.Background(), testRenter, "nope"); !fault.Is(err, fault.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFinalize_DistributesFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rt := f.book(t, 1_010_000, 1_020_000) // amount 10_000_000, deposit 100_000

	if _, err := f.svc.Finalize(ctx, rt.ID); !fault.Is(err, fault.KindState) {
		t.Fatalf("expected state error before end, got %v", err)
	}

	// Finalize is permissionless: no caller identity is checked.
	f.clk.Set(1_020_000)
	got, err := f.svc.Finalize(ctx, rt.ID)
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if got.Status != StatusFinalized {
		t.Fatalf("expected FINALIZED, got %s", got.Status)
	}

	// 500 bps of 10_000_000 is 500_000 to the treasury, the rest to the
	// owner, and the deposit back to the renter.
	owner, _ := f.ledger.Withdrawable(ctx, testOwner)
	treasury, _ := f.ledger.Withdrawable(ctx, testTreasury)
	renter, _ := f.ledger.Withdrawable(ctx, testRenter)
	if owner != 9_500_000 {
		t.Fatalf("expected owner share 9500000, got %d", owner)
	}
	if treasury != 500_000 {
		t.Fatalf("expected fee 500000, got %d", treasury)
	}
	if renter != 100_000 {
		t.Fatalf("expected deposit refund 100000, got %d", renter)
	}
	held, _ := f.ledger.Held(ctx, rt.ID)
	if held != 0 {
		t.Fatalf("expected empty hold, got %d", held)
	}

	if _, err := f.svc.Finalize(ctx, rt.ID); !fault.Is(err, fault.KindState) {
		t.Fatalf("expected state error on double finalize, got %v", err)
	}
}

func TestFinalize_FeeExtremes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.SetFeeBps(0); err != nil {
		t.Fatalf("set fee 0: %v", err)
	}
	rt := f.book(t, 1_010_000, 1_020_000)
	f.clk.Set(1_020_000)
	if _, err := f.svc.Finalize(ctx, rt.ID); err != nil {
		t.Fatalf("finalize at 0 bps: %v", err)
	}
	owner, _ := f.ledger.Withdrawable(ctx, testOwner)
	if owner != 10_000_000 {
		t.Fatalf("expected full rent at 0 bps, got %d", owner)
	}

	if err := f.svc.SetFeeBps(10_000); err != nil {
		t.Fatalf("set fee 10000: %v", err)
	}
	rt2 := f.book(t, 1_030_000, 1_040_000)
	f.clk.Set(1_040_000)
	if _, err := f.svc.Finalize(ctx, rt2.ID); err != nil {
		t.Fatalf("finalize at 10000 bps: %v", err)
	}
	treasury, _ := f.ledger.Withdrawable(ctx, testTreasury)
	if treasury != 10_000_000 {
		t.Fatalf("expected full rent to treasury at 10000 bps, got %d", treasury)
	}
	owner, _ = f.ledger.Withdrawable(ctx, testOwner)
	if owner != 10_000_000 {
		t.Fatalf("owner share must be unchanged at 10000 bps, got %d", owner)
	}

	if err := f.svc.SetFeeBps(10_001); !fault.Is(err, fault.KindValidation) {
		t.Fatalf("expected validation error above 10000 bps, got %v", err)
	}
	if err := f.svc.SetFeeBps(-1); !fault.Is(err, fault.KindValidation) {
		t.Fatalf("expected validation error below 0 bps, got %v", err)
	}
	if err := f.svc.SetFeeRecipient(""); !fault.Is(err, fault.KindValidation) {
		t.Fatalf("expected validation error on empty recipient, got %v", err)
	}
}

func TestSettleDue_SweepsEndedRentals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.book(t, 1_010_000, 1_020_000)
	second := f.book(t, 1_020_000, 1_030_000)
	open := f.book(t, 1_030_000, 1_040_000)

	f.clk.Set(1_030_000)
	settled, err := f.svc.SettleDue(ctx)
	if err != nil {
		t.Fatalf("settle due: %v", err)
	}
	if settled != 2 {
		t.Fatalf("expected 2 settled, got %d", settled)
	}

	for _, id := range []string{first.ID, second.ID} {
		rt, err := f.svc.Get(ctx, id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if rt.Status != StatusFinalized {
			t.Fatalf("rental %s not finalized: %s", id, rt.Status)
		}
	}
	rt, err := f.svc.Get(ctx, open.ID)
	if err != nil {
		t.Fatalf("get open: %v", err)
	}
	if rt.Status == StatusFinalized {
		t.Fatalf("open rental must not settle")
	}

	// A second sweep finds nothing left.
	settled, err = f.svc.SettleDue(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if settled != 0 {
		t.Fatalf("expected idle sweep, got %d", settled)
	}
}

func TestEscrowConservationAcrossLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	check := func(stage string) {
		totals, err := f.ledger.Snapshot(ctx)
		if err != nil {
			t.Fatalf("%s: snapshot: %v", stage, err)
		}
		if totals.Held+totals.Withdrawable != totals.Deposited-totals.Withdrawn {
			t.Fatalf("%s: conservation broken: %+v", stage, totals)
		}
	}

	rt := f.book(t, 1_010_000, 1_020_000)
	check("after book")

	f.clk.Set(1_010_000)
	if _, err := f.svc.CheckIn(ctx, testRenter, rt.ID); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	check("after check-in")

	f.clk.Set(1_020_000)
	if _, err := f.svc.Finalize(ctx, rt.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	check("after finalize")

	if _, err := f.ledger.Withdraw(ctx, testOwner); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	check("after withdraw")
}
