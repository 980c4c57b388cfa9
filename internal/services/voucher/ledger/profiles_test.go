package ledger

import (
	"context"
	"testing"

	apperrors "github.com/gonzalobarria/mesa-compartida/internal/platform/errors"
)

func TestCreateVendorProfileTwiceKeepsFirst(t *testing.T) {
	env := newTestEnv(t)
	first, err := env.ledger.CreateVendorProfile(as(vendorAddr), "La Picada", "picada.eth")
	if err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	_, err = env.ledger.CreateVendorProfile(as(vendorAddr), "Otro", "otro.eth")
	assertCode(t, err, apperrors.CodeAlreadyRegistered)

	got, err := env.ledger.VendorProfile(vendorAddr)
	if err != nil {
		t.Fatalf("vendor profile: %v", err)
	}
	if got != first {
		t.Fatalf("profile = %+v, want %+v", got, first)
	}
	if !got.CreatedAt.Equal(startTime) {
		t.Fatalf("created at = %v, want %v", got.CreatedAt, startTime)
	}
	if _, err := env.ledger.VendorByAlias("otro.eth"); apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("alias of rejected profile should not resolve, err = %v", err)
	}
}

func TestRolesAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	ctx := as(buyerAddr)
	if _, err := env.ledger.CreateVendorProfile(ctx, "Cocinera", ""); err != nil {
		t.Fatalf("create vendor: %v", err)
	}
	if _, err := env.ledger.CreateBuyerProfile(ctx, "Cocinera"); err != nil {
		t.Fatalf("create buyer: %v", err)
	}
	if _, err := env.ledger.CreateBeneficiaryProfile(ctx, "Cocinera"); err != nil {
		t.Fatalf("create beneficiary: %v", err)
	}
	_, err := env.ledger.CreateBuyerProfile(ctx, "Again")
	assertCode(t, err, apperrors.CodeAlreadyRegistered)
	_, err = env.ledger.CreateBeneficiaryProfile(ctx, "Again")
	assertCode(t, err, apperrors.CodeAlreadyRegistered)
}

func TestCreateProfileValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.ledger.CreateBuyerProfile(as(buyerAddr), "   ")
	assertCode(t, err, apperrors.CodeInvalidInput)
	_, err = env.ledger.CreateVendorProfile(as(vendorAddr), "La Picada", "Not An Alias")
	assertCode(t, err, apperrors.CodeInvalidInput)
	_, err = env.ledger.CreateBeneficiaryProfile(context.Background(), "Sin firma")
	assertCode(t, err, apperrors.CodeCallerRequired)

	if _, err := env.ledger.BuyerProfile(buyerAddr); apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("buyer profile err = %v, want not found", err)
	}
}

func TestNormalizeAlias(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{input: "picada.eth", want: "picada.eth", ok: true},
		{input: " La-Picada.Mesa.ETH ", want: "la-picada.mesa.eth", ok: true},
		{input: "picada", ok: false},
		{input: ".eth", ok: false},
		{input: "-picada.eth", ok: false},
		{input: "pi_cada.eth", ok: false},
	}
	for _, tt := range tests {
		got, err := NormalizeAlias(tt.input)
		if tt.ok != (err == nil) {
			t.Fatalf("NormalizeAlias(%q) err = %v, want ok %v", tt.input, err, tt.ok)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("NormalizeAlias(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRegisterAlias(t *testing.T) {
	env := newTestEnv(t)
	env.setupParticipants()
	if _, err := env.ledger.CreateVendorProfile(as(strangerAddr), "Fuente", ""); err != nil {
		t.Fatalf("create second vendor: %v", err)
	}

	assertCode(t, env.ledger.RegisterAlias(as(strangerAddr), "picada.eth"), apperrors.CodeAlreadyRegistered)
	assertCode(t, env.ledger.RegisterAlias(as(buyerAddr), "donante.eth"), apperrors.CodeNotAVendor)

	if err := env.ledger.RegisterAlias(as(vendorAddr), "nueva.picada.eth"); err != nil {
		t.Fatalf("register alias: %v", err)
	}
	if err := env.ledger.RegisterAlias(as(strangerAddr), "picada.eth"); err != nil {
		t.Fatalf("released alias should be available: %v", err)
	}
	got, err := env.ledger.VendorByAlias("nueva.picada.eth")
	if err != nil {
		t.Fatalf("vendor by alias: %v", err)
	}
	if got.Address != vendorAddr {
		t.Fatalf("alias owner = %s, want vendor", got.Address.Hex())
	}
}

func TestUpdateAndVerifyVendor(t *testing.T) {
	env := newTestEnv(t)
	env.setupParticipants()

	updated, err := env.ledger.UpdateVendorProfile(as(vendorAddr), "La Picada de Don Tito", "ipfs://logo")
	if err != nil {
		t.Fatalf("update vendor: %v", err)
	}
	if updated.Name != "La Picada de Don Tito" || updated.ContentRef != "ipfs://logo" {
		t.Fatalf("updated = %+v", updated)
	}
	_, err = env.ledger.UpdateVendorProfile(as(buyerAddr), "x", "")
	assertCode(t, err, apperrors.CodeNotAVendor)

	assertCode(t, env.ledger.VerifyVendor(as(vendorAddr), vendorAddr), apperrors.CodeNotOwner)
	assertCode(t, env.ledger.VerifyVendor(as(adminAddr), strangerAddr), apperrors.CodeNotFound)
	if err := env.ledger.VerifyVendor(as(adminAddr), vendorAddr); err != nil {
		t.Fatalf("verify vendor: %v", err)
	}
	got, _ := env.ledger.VendorProfile(vendorAddr)
	if !got.Verified {
		t.Fatal("expected vendor to be verified")
	}
}

func TestRateVendor(t *testing.T) {
	env := newTestEnv(t)
	env.setupParticipants()
	plate := env.createPlate(2)
	txID := env.purchase(plate, "2")

	assertCode(t, env.ledger.RateVendor(as(buyerAddr), txID, 5), apperrors.CodeInvalidState)

	if err := env.ledger.ClaimVoucher(as(beneficiaryAddr), txID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := env.ledger.RedeemVoucher(as(vendorAddr), txID); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	assertCode(t, env.ledger.RateVendor(as(beneficiaryAddr), txID, 6), apperrors.CodeInvalidRating)
	assertCode(t, env.ledger.RateVendor(as(strangerAddr), txID, 4), apperrors.CodeNotOwner)
	assertCode(t, env.ledger.RateVendor(as(beneficiaryAddr), 99, 4), apperrors.CodeNotFound)
	if err := env.ledger.RateVendor(as(beneficiaryAddr), txID, 4); err != nil {
		t.Fatalf("rate: %v", err)
	}
	assertCode(t, env.ledger.RateVendor(as(buyerAddr), txID, 5), apperrors.CodeAlreadyRated)

	profile, _ := env.ledger.VendorProfile(vendorAddr)
	if profile.RatingCount != 1 || profile.RatingSum != 4 {
		t.Fatalf("rating = %d/%d, want 4/1", profile.RatingSum, profile.RatingCount)
	}
	if !profile.AverageRating().Equal(dec("4")) {
		t.Fatalf("average = %s, want 4", profile.AverageRating())
	}
}
