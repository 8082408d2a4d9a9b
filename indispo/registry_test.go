package indispo_test

import (
	"context"
	"testing"
	"time"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/indispo"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func svcID(s string) *org.ServiceID { id := org.ServiceID(s); return &id }
func secID(s string) *org.SecteurID { id := org.SecteurID(s); return &id }

func newTestRegistry() (*indispo.Registry, *org.Static) {
	dir := org.NewStatic()
	dir.AddUser(org.User{ID: "u-collab", Nom: "Alami", Role: org.RoleCollaborateur, Actif: true, SiteID: "site-1", ServiceID: svcID("svc-1"), SecteurID: secID("sec-1")})
	dir.AddUser(org.User{ID: "u-peer", Nom: "Bennani", Role: org.RoleCollaborateur, Actif: true, SiteID: "site-1", ServiceID: svcID("svc-1"), SecteurID: secID("sec-1")})
	dir.AddUser(org.User{ID: "u-chef", Nom: "Alaoui", Role: org.RoleChefService, Actif: true, SiteID: "site-1", ServiceID: svcID("svc-1")})
	dir.AddUser(org.User{ID: "u-autre-chef", Nom: "Tahiri", Role: org.RoleChefService, Actif: true, SiteID: "site-1", ServiceID: svcID("svc-2")})
	dir.AddUser(org.User{ID: "u-chefsec", Nom: "Tazi", Role: org.RoleChefSecteur, Actif: true, SiteID: "site-1", SecteurID: secID("sec-1")})
	dir.AddUser(org.User{ID: "u-admin", Nom: "Admin", Role: org.RoleAdmin, Actif: true, SiteID: "site-1"})

	reg := &indispo.Registry{
		Store:     indispo.NewMemory(),
		Directory: dir,
	}
	return reg, dir
}

func actor(dir *org.Static, id org.UserID) org.User { return dir.Users[id] }

func weekOff() astreinte.Period {
	return astreinte.Period{
		Debut: astreinte.NewDate(2026, time.March, 2),
		Fin:   astreinte.NewDate(2026, time.March, 8),
	}
}

// =============================================================================
// DECLARATION LIFECYCLE
// =============================================================================

func TestRegistry_Create_Defaults(t *testing.T) {
	// GIVEN: A collaborateur declaring a week off
	// WHEN: Creating without a priorite
	// THEN: en_attente, priorite normale, owned by the actor

	ctx := context.Background()
	reg, dir := newTestRegistry()

	ind, err := reg.Create(ctx, actor(dir, "u-collab"), weekOff(), indispo.MotifCongeAnnuel, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ind.UserID != "u-collab" {
		t.Fatalf("declarations are self-service, owner is %s", ind.UserID)
	}
	if ind.Status != indispo.StatusEnAttente {
		t.Fatalf("fresh declaration should be en_attente, got %s", ind.Status)
	}
	if ind.Priorite != indispo.PrioriteNormale {
		t.Fatalf("default priorite should be normale, got %s", ind.Priorite)
	}
}

func TestRegistry_Create_MotifAutreRequiresDescription(t *testing.T) {
	ctx := context.Background()
	reg, dir := newTestRegistry()

	_, err := reg.Create(ctx, actor(dir, "u-collab"), weekOff(), indispo.MotifAutre, "", "")
	if !astreinte.IsClientError(err) {
		t.Fatalf("motif autre without description must fail, got %v", err)
	}

	if _, err := reg.Create(ctx, actor(dir, "u-collab"), weekOff(), indispo.MotifAutre, "garde parentale", ""); err != nil {
		t.Fatalf("described autre should pass: %v", err)
	}
}

func TestRegistry_Create_InvalidPeriod(t *testing.T) {
	ctx := context.Background()
	reg, dir := newTestRegistry()

	reversed := astreinte.Period{
		Debut: astreinte.NewDate(2026, time.March, 8),
		Fin:   astreinte.NewDate(2026, time.March, 2),
	}
	_, err := reg.Create(ctx, actor(dir, "u-collab"), reversed, indispo.MotifCongeAnnuel, "", "")
	if !astreinte.IsClientError(err) {
		t.Fatalf("reversed period must fail, got %v", err)
	}
}

func TestRegistry_PendingDoesNotBlockScheduling(t *testing.T) {
	// Only approval makes a declaration effective.

	ctx := context.Background()
	reg, dir := newTestRegistry()
	day := astreinte.NewDate(2026, time.March, 7)

	ind, err := reg.Create(ctx, actor(dir, "u-collab"), weekOff(), indispo.MotifCongeAnnuel, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if blocked, _ := reg.IsUnavailable(ctx, "u-collab", day); blocked {
		t.Fatal("pending declaration must not block")
	}

	if _, err := reg.Approve(ctx, actor(dir, "u-chef"), ind.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if blocked, _ := reg.IsUnavailable(ctx, "u-collab", day); !blocked {
		t.Fatal("approved declaration should block its dates")
	}
	if blocked, _ := reg.IsUnavailable(ctx, "u-collab", astreinte.NewDate(2026, time.March, 14)); blocked {
		t.Fatal("dates outside the period must stay free")
	}
}

func TestRegistry_Approve_AuthorityMatrix(t *testing.T) {
	// GIVEN: A pending declaration from a collaborateur of svc-1
	// WHEN: Various actors decide
	// THEN: Only managers of the owner may decide

	ctx := context.Background()
	reg, dir := newTestRegistry()

	cases := []struct {
		actor   org.UserID
		allowed bool
	}{
		{"u-collab", false},
		{"u-peer", false},
		{"u-autre-chef", false},
		{"u-chef", true},
		{"u-chefsec", true},
		{"u-admin", true},
	}
	for _, tc := range cases {
		ind, err := reg.Create(ctx, actor(dir, "u-collab"), weekOff(), indispo.MotifCongeAnnuel, "", "")
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		_, err = reg.Approve(ctx, actor(dir, tc.actor), ind.ID)
		if tc.allowed && err != nil {
			t.Errorf("%s should be allowed to approve: %v", tc.actor, err)
		}
		if !tc.allowed && !astreinte.IsForbidden(err) {
			t.Errorf("%s must be forbidden, got %v", tc.actor, err)
		}
	}
}

func TestRegistry_Refuse_RequiresReason(t *testing.T) {
	ctx := context.Background()
	reg, dir := newTestRegistry()

	ind, _ := reg.Create(ctx, actor(dir, "u-collab"), weekOff(), indispo.MotifCongeAnnuel, "", "")

	if _, err := reg.Refuse(ctx, actor(dir, "u-chef"), ind.ID, ""); !astreinte.IsClientError(err) {
		t.Fatalf("refusal without reason must fail, got %v", err)
	}

	refused, err := reg.Refuse(ctx, actor(dir, "u-chef"), ind.ID, "effectif insuffisant cette semaine")
	if err != nil {
		t.Fatalf("refuse: %v", err)
	}
	if refused.Status != indispo.StatusRefuse || refused.DecidedBy != "u-chef" || refused.RefusalReason == "" {
		t.Fatalf("refusal trail incomplete: %+v", refused)
	}

	// A decided declaration cannot be decided again.
	if _, err := reg.Approve(ctx, actor(dir, "u-chef"), ind.ID); !astreinte.IsClientError(err) {
		t.Fatalf("re-deciding must fail, got %v", err)
	}
}

func TestRegistry_Annule_StopsBlocking(t *testing.T) {
	// GIVEN: An approved declaration
	// WHEN: The owner cancels it
	// THEN: Its dates are schedulable again

	ctx := context.Background()
	reg, dir := newTestRegistry()
	day := astreinte.NewDate(2026, time.March, 7)

	ind, _ := reg.Create(ctx, actor(dir, "u-collab"), weekOff(), indispo.MotifCongeAnnuel, "", "")
	if _, err := reg.Approve(ctx, actor(dir, "u-chef"), ind.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if _, err := reg.Annule(ctx, actor(dir, "u-peer"), ind.ID); !astreinte.IsForbidden(err) {
		t.Fatalf("a peer must not cancel, got %v", err)
	}

	cancelled, err := reg.Annule(ctx, actor(dir, "u-collab"), ind.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != indispo.StatusAnnule {
		t.Fatalf("expected annule, got %s", cancelled.Status)
	}
	if blocked, _ := reg.IsUnavailable(ctx, "u-collab", day); blocked {
		t.Fatal("cancelled declaration must stop blocking")
	}

	if _, err := reg.Annule(ctx, actor(dir, "u-collab"), ind.ID); !astreinte.IsClientError(err) {
		t.Fatalf("double cancel must fail, got %v", err)
	}
}

func TestRegistry_Update_OwnerAndPendingOnly(t *testing.T) {
	ctx := context.Background()
	reg, dir := newTestRegistry()

	ind, _ := reg.Create(ctx, actor(dir, "u-collab"), weekOff(), indispo.MotifCongeAnnuel, "", "")

	if _, err := reg.Update(ctx, actor(dir, "u-chef"), ind.ID, weekOff(), indispo.MotifCongeMaladie, "", indispo.PrioriteUrgente); !astreinte.IsForbidden(err) {
		t.Fatalf("only the owner may amend, got %v", err)
	}

	amended, err := reg.Update(ctx, actor(dir, "u-collab"), ind.ID, weekOff(), indispo.MotifCongeMaladie, "", indispo.PrioriteUrgente)
	if err != nil {
		t.Fatalf("amend: %v", err)
	}
	if amended.Motif != indispo.MotifCongeMaladie || amended.Priorite != indispo.PrioriteUrgente {
		t.Fatalf("amendment not applied: %+v", amended)
	}

	if _, err := reg.Approve(ctx, actor(dir, "u-chef"), ind.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := reg.Update(ctx, actor(dir, "u-collab"), ind.ID, weekOff(), indispo.MotifCongeAnnuel, "", ""); !astreinte.IsClientError(err) {
		t.Fatalf("approved declarations are frozen, got %v", err)
	}
}

// =============================================================================
// VISIBILITY
// =============================================================================

func TestRegistry_List_Visibility(t *testing.T) {
	// GIVEN: Declarations from two collaborateurs of svc-1
	// WHEN: Different actors list
	// THEN: Owners see their own, the chef sees their service, peers see nothing

	ctx := context.Background()
	reg, dir := newTestRegistry()

	if _, err := reg.Create(ctx, actor(dir, "u-collab"), weekOff(), indispo.MotifCongeAnnuel, "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	other := astreinte.Period{Debut: astreinte.NewDate(2026, time.April, 6), Fin: astreinte.NewDate(2026, time.April, 12)}
	if _, err := reg.Create(ctx, actor(dir, "u-peer"), other, indispo.MotifFormation, "", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	own, err := reg.List(ctx, actor(dir, "u-collab"), indispo.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(own) != 1 || own[0].UserID != "u-collab" {
		t.Fatalf("a collaborateur sees only their own declarations, got %d", len(own))
	}

	managed, err := reg.List(ctx, actor(dir, "u-chef"), indispo.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(managed) != 2 {
		t.Fatalf("the chef should see the whole service, got %d", len(managed))
	}

	foreign, err := reg.List(ctx, actor(dir, "u-autre-chef"), indispo.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(foreign) != 0 {
		t.Fatalf("another service's chef sees nothing, got %d", len(foreign))
	}
}

func TestRegistry_Get_ForbiddenForStrangers(t *testing.T) {
	ctx := context.Background()
	reg, dir := newTestRegistry()

	ind, _ := reg.Create(ctx, actor(dir, "u-collab"), weekOff(), indispo.MotifCongeAnnuel, "", "")

	if _, err := reg.Get(ctx, actor(dir, "u-peer"), ind.ID); !astreinte.IsForbidden(err) {
		t.Fatalf("peer access must be forbidden, got %v", err)
	}
	if _, err := reg.Get(ctx, actor(dir, "u-admin"), ind.ID); err != nil {
		t.Fatalf("admin access should pass: %v", err)
	}
}
