package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/nurpe/lensbook/internal/model"
)

// stubRenderer produces a recognizable fake document and counts renders.
type stubRenderer struct {
	renders int
}

func (r *stubRenderer) Render(doc model.ContractDocument) ([]byte, error) {
	r.renders++
	return []byte(fmt.Sprintf("%%PDF-stub booking=%s render=%d", doc.Booking.ID, r.renders)), nil
}

type contractFixture struct {
	*bookingFixture
	contracts *memContractStore
	renderer  *stubRenderer
	service   *ContractService
}

func newContractFixture(t *testing.T) *contractFixture {
	t.Helper()

	base := newBookingFixture(t)
	contracts := newMemContractStore()
	renderer := &stubRenderer{}

	base.store.parties[base.clientID] = model.Party{
		ID: base.clientID, FullName: "Aruzhan Seitkali", Email: "aruzhan@example.com", Role: model.RoleClient,
	}
	base.store.parties[base.photographerID] = model.Party{
		ID: base.photographerID, FullName: "Daniyar Omarov", Email: "daniyar@example.com", Role: model.RolePhotographer,
	}

	notificationService := NewNotificationService(base.notifications, base.live)
	return &contractFixture{
		bookingFixture: base,
		contracts:      contracts,
		renderer:       renderer,
		service: NewContractService(
			contracts,
			base.store,
			base.store,
			renderer,
			notificationService,
			[]string{"CLIENT", "PHOTOGRAPHER"},
		),
	}
}

func (f *contractFixture) confirmedBooking(t *testing.T) *model.Booking {
	t.Helper()
	booking := f.createBooking(t)
	updated, err := f.bookingFixture.service.Transition(context.Background(), f.photographer, booking.ID, model.BookingConfirmed)
	if err != nil {
		t.Fatalf("confirm booking: %v", err)
	}
	return updated
}

func TestContractGenerateRequiresConfirmedBooking(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()

	booking := f.createBooking(t)
	_, err := f.service.Generate(ctx, f.client, booking.ID)
	if !errors.Is(err, ErrInvalidBookingState) {
		t.Fatalf("generate on requested booking err = %v, want ErrInvalidBookingState", err)
	}

	confirmed := f.confirmedBooking(t)
	contract, err := f.service.Generate(ctx, f.client, confirmed.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if contract.BookingID != confirmed.ID {
		t.Fatalf("contract booking = %s, want %s", contract.BookingID, confirmed.ID)
	}
	if !contract.Current() {
		t.Fatal("fresh contract must be current")
	}
	if !bytes.HasPrefix(contract.Document, []byte("%PDF")) {
		t.Fatalf("document does not look rendered: %q", contract.Document)
	}
}

func TestContractGenerateACL(t *testing.T) {
	f := newContractFixture(t)
	booking := f.confirmedBooking(t)

	stranger := model.Principal{UserID: uuid.New(), Role: model.RoleClient}
	if _, err := f.service.Generate(context.Background(), stranger, booking.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger generate err = %v, want ErrForbidden", err)
	}

	admin := model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}
	if _, err := f.service.Generate(context.Background(), admin, booking.ID); err != nil {
		t.Fatalf("admin generate: %v", err)
	}
}

func TestContractSignBothPartiesFullyExecuted(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	booking := f.confirmedBooking(t)

	contract, err := f.service.Generate(ctx, f.client, booking.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	afterClient, err := f.service.Sign(ctx, f.client, contract.ID, "Aruzhan Seitkali", "data:image/png;base64,aaa")
	if err != nil {
		t.Fatalf("client sign: %v", err)
	}
	if f.service.FullyExecuted(*afterClient) {
		t.Fatal("one signature must not fully execute the contract")
	}

	afterBoth, err := f.service.Sign(ctx, f.photographer, contract.ID, "Daniyar Omarov", "data:image/png;base64,bbb")
	if err != nil {
		t.Fatalf("photographer sign: %v", err)
	}
	if !f.service.FullyExecuted(*afterBoth) {
		t.Fatal("contract with both signatures must be fully executed")
	}

	// Fully-executed is stable while the booking is still just CONFIRMED;
	// contract progress never depends on the booking moving further.
	got, err := f.bookingFixture.service.Get(ctx, f.client, booking.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if got.State != model.BookingConfirmed {
		t.Fatalf("booking state = %s, want %s", got.State, model.BookingConfirmed)
	}

	// The counter-party of each signer got a CONTRACT_SIGNED record.
	for _, userID := range []uuid.UUID{f.clientID, f.photographerID} {
		page, err := f.notifications.List(ctx, userID, 1, 20)
		if err != nil {
			t.Fatalf("list notifications: %v", err)
		}
		var signed int
		for _, n := range page.Items {
			if n.Type == model.NotifContractSigned {
				signed++
			}
		}
		if signed != 1 {
			t.Errorf("user %s has %d CONTRACT_SIGNED notifications, want 1", userID, signed)
		}
	}
}

func TestContractDuplicateSignature(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	booking := f.confirmedBooking(t)

	contract, err := f.service.Generate(ctx, f.client, booking.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := f.service.Sign(ctx, f.client, contract.ID, "Aruzhan Seitkali", "sig"); err != nil {
		t.Fatalf("first sign: %v", err)
	}

	_, err = f.service.Sign(ctx, f.client, contract.ID, "Aruzhan Seitkali", "sig")
	if !errors.Is(err, ErrDuplicateSignature) {
		t.Fatalf("second sign err = %v, want ErrDuplicateSignature", err)
	}

	got, err := f.service.Get(ctx, f.client, contract.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Signatures) != 1 {
		t.Fatalf("contract has %d signatures, want 1", len(got.Signatures))
	}
}

func TestContractRegenerateSupersedes(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	booking := f.confirmedBooking(t)

	first, err := f.service.Generate(ctx, f.client, booking.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := f.service.Sign(ctx, f.client, first.ID, "Aruzhan Seitkali", "sig"); err != nil {
		t.Fatalf("sign first version: %v", err)
	}

	second, err := f.service.Generate(ctx, f.photographer, booking.ID)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("regeneration must produce a new contract id")
	}
	if len(second.Signatures) != 0 {
		t.Fatalf("new version has %d signatures, want 0", len(second.Signatures))
	}

	// The old id stays resolvable and downloadable, but is no longer current
	// and cannot collect signatures.
	old, err := f.service.Get(ctx, f.client, first.ID)
	if err != nil {
		t.Fatalf("get superseded: %v", err)
	}
	if old.Current() {
		t.Fatal("superseded contract must not report current")
	}
	if _, _, err := f.service.Download(ctx, f.client, first.ID); err != nil {
		t.Fatalf("download superseded: %v", err)
	}
	if _, err := f.service.Sign(ctx, f.photographer, first.ID, "Daniyar Omarov", "sig"); !errors.Is(err, ErrContractNotFound) {
		t.Fatalf("sign superseded err = %v, want ErrContractNotFound", err)
	}

	current, err := f.contracts.CurrentForBooking(ctx, booking.ID)
	if err != nil {
		t.Fatalf("current for booking: %v", err)
	}
	if current.ID != second.ID {
		t.Fatalf("current contract = %s, want %s", current.ID, second.ID)
	}
}

func TestContractDownloadACL(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	booking := f.confirmedBooking(t)

	contract, err := f.service.Generate(ctx, f.client, booking.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	document, fileName, err := f.service.Download(ctx, f.photographer, contract.ID)
	if err != nil {
		t.Fatalf("party download: %v", err)
	}
	if len(document) == 0 {
		t.Fatal("downloaded document is empty")
	}
	if want := fmt.Sprintf("contract-%s.pdf", contract.ID); fileName != want {
		t.Fatalf("file name = %q, want %q", fileName, want)
	}

	stranger := model.Principal{UserID: uuid.New(), Role: model.RolePhotographer}
	if _, _, err := f.service.Download(ctx, stranger, contract.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger download err = %v, want ErrForbidden", err)
	}

	if _, _, err := f.service.Download(ctx, f.client, uuid.New()); !errors.Is(err, ErrContractNotFound) {
		t.Fatalf("unknown id err = %v, want ErrContractNotFound", err)
	}
}

func TestContractSignValidation(t *testing.T) {
	f := newContractFixture(t)
	ctx := context.Background()
	booking := f.confirmedBooking(t)

	contract, err := f.service.Generate(ctx, f.client, booking.ID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := f.service.Sign(ctx, f.client, contract.ID, "  ", "sig"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank name err = %v, want ErrInvalidInput", err)
	}
	if _, err := f.service.Sign(ctx, f.client, contract.ID, "Aruzhan Seitkali", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank image err = %v, want ErrInvalidInput", err)
	}

	stranger := model.Principal{UserID: uuid.New(), Role: model.RoleClient}
	if _, err := f.service.Sign(ctx, stranger, contract.ID, "Nobody", "sig"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger sign err = %v, want ErrForbidden", err)
	}
}
