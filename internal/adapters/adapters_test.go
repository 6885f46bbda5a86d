package adapters

import (
	"context"
	"testing"

	"github.com/google/uuid"

	accountsrepo "marketplace_backend/internal/accounts/repository"
	addressrepo "marketplace_backend/internal/addresses/repository"
	requestservice "marketplace_backend/internal/requests/service"
	"marketplace_backend/internal/requests/transport"
	serviceports "marketplace_backend/internal/services/ports"
	"marketplace_backend/platform/apperr"
)

type fakeAccounts struct {
	accounts map[uuid.UUID]accountsrepo.Account
	profiles map[uuid.UUID]accountsrepo.ProviderProfile
}

func (f fakeAccounts) RequireActive(_ context.Context, userID uuid.UUID, role string) (accountsrepo.Account, error) {
	acc, ok := f.accounts[userID]
	if !ok || !acc.IsActive || acc.Role != role {
		return accountsrepo.Account{}, apperr.Forbidden("account not allowed")
	}
	return acc, nil
}

func (f fakeAccounts) RequireActiveProvider(_ context.Context, userID uuid.UUID) (accountsrepo.ProviderProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return accountsrepo.ProviderProfile{}, apperr.Forbidden("provider profile missing")
	}
	return p, nil
}

func (f fakeAccounts) Account(_ context.Context, userID uuid.UUID) (accountsrepo.Account, error) {
	acc, ok := f.accounts[userID]
	if !ok {
		return accountsrepo.Account{}, apperr.NotFound("account not found")
	}
	return acc, nil
}

func TestAccountDirectory(t *testing.T) {
	client, provider, inactive := uuid.New(), uuid.New(), uuid.New()
	profileID := uuid.New()
	dir := NewAccountDirectory(fakeAccounts{
		accounts: map[uuid.UUID]accountsrepo.Account{
			client:   {ID: client, Email: "ana@example.com", FullName: "Ana", Role: "client", IsActive: true},
			provider: {ID: provider, Role: "provider", IsActive: true},
			inactive: {ID: inactive, Email: "old@example.com", Role: "client"},
		},
		profiles: map[uuid.UUID]accountsrepo.ProviderProfile{
			provider: {ID: profileID, UserID: provider, DisplayName: "Plomería Sur"},
		},
	})
	ctx := context.Background()

	if err := dir.RequireActiveClient(ctx, client); err != nil {
		t.Fatalf("client: %v", err)
	}
	if err := dir.RequireActiveClient(ctx, provider); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected provider to be rejected as client, got %v", err)
	}

	id, err := dir.ActiveProviderID(ctx, provider)
	if err != nil || id != profileID {
		t.Fatalf("expected profile id, got %s %v", id, err)
	}
	ref, err := dir.ActiveProvider(ctx, provider)
	if err != nil || ref.DisplayName != "Plomería Sur" || ref.UserID != provider {
		t.Fatalf("unexpected provider ref %+v %v", ref, err)
	}
	if _, err := dir.ActiveProvider(ctx, client); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for client, got %v", err)
	}

	r, err := dir.Recipient(ctx, client)
	if err != nil || r.Email != "ana@example.com" || r.Name != "Ana" {
		t.Fatalf("unexpected recipient %+v %v", r, err)
	}
	r, err = dir.Recipient(ctx, inactive)
	if err != nil || r.Email != "" {
		t.Fatalf("inactive accounts get no e-mail, got %+v %v", r, err)
	}
}

type fakeAddresses map[uuid.UUID]addressrepo.Address

func (f fakeAddresses) GetActiveAddress(_ context.Context, userID, addressID uuid.UUID) (addressrepo.Address, error) {
	a, ok := f[addressID]
	if !ok || a.UserID != userID || !a.IsActive {
		return addressrepo.Address{}, apperr.NotFound("address not found")
	}
	return a, nil
}

func (f fakeAddresses) GetByID(_ context.Context, addressID uuid.UUID) (addressrepo.Address, error) {
	a, ok := f[addressID]
	if !ok {
		return addressrepo.Address{}, apperr.NotFound("address not found")
	}
	return a, nil
}

func TestRequestAddressLookup(t *testing.T) {
	owner, addrID := uuid.New(), uuid.New()
	lat := -34.6
	lookup := NewRequestAddressLookup(fakeAddresses{
		addrID: {ID: addrID, UserID: owner, Street: "Av. Corrientes 1234", City: "CABA", Latitude: &lat, IsActive: true},
	})

	addr, err := lookup.GetActiveAddress(context.Background(), owner, addrID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if addr.City != "CABA" || addr.Latitude == nil || *addr.Latitude != lat {
		t.Fatalf("unexpected address %+v", addr)
	}
	if _, err := lookup.GetActiveAddress(context.Background(), uuid.New(), addrID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for another user, got %v", err)
	}
}

type recordingCreator struct {
	in requestservice.RehireInput
}

func (r *recordingCreator) CreateRehire(_ context.Context, in requestservice.RehireInput) (transport.RequestResponse, error) {
	r.in = in
	return transport.RequestResponse{ID: uuid.New(), Title: "[RECONTRATACION] pintura"}, nil
}

func TestRehirerMapsRequest(t *testing.T) {
	creator := &recordingCreator{}
	city := "CABA"
	req := serviceports.RehireRequest{
		ClientID:         uuid.New(),
		OriginServiceID:  uuid.New(),
		OriginRequestID:  uuid.New(),
		TargetProviderID: uuid.New(),
		City:             &city,
	}

	res, err := NewRehirer(creator).CreateRehire(context.Background(), req)
	if err != nil {
		t.Fatalf("rehire: %v", err)
	}
	if res.Title != "[RECONTRATACION] pintura" || res.RequestID == uuid.Nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if creator.in.TargetProviderID != req.TargetProviderID || creator.in.City != &city {
		t.Fatalf("input not mapped: %+v", creator.in)
	}
}
