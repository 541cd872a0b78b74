package organization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tresfinos/treasury/common/apierr"
	"github.com/tresfinos/treasury/pkg/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Organization{}, &models.TeamMember{}))
	return NewService(zap.NewNop(), db)
}

func strPtr(v string) *string { return &v }

func TestCreateOrganizationDefaults(t *testing.T) {
	svc := newTestService(t)

	org, err := svc.CreateOrganization(context.Background(), "  Acme Treasury  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Acme Treasury", org.Name)
	assert.Equal(t, "USD", org.BaseCurrency)
	assert.Equal(t, "ACTIVE", org.Status)

	_, err = svc.CreateOrganization(context.Background(), "   ", "")
	assert.True(t, apierr.IsInvalidInput(err))
}

func TestUpdateOrganizationPartial(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	org, err := svc.CreateOrganization(ctx, "Acme", "usd")
	require.NoError(t, err)

	updated, err := svc.UpdateOrganization(ctx, org.ID, OrganizationUpdate{
		BaseCurrency: strPtr("eur"),
	})
	require.NoError(t, err)

	reloaded, err := svc.GetOrganization(ctx, updated.ID)
	require.NoError(t, err)
	assert.Equal(t, "EUR", reloaded.BaseCurrency)
	assert.Equal(t, "Acme", reloaded.Name)

	_, err = svc.UpdateOrganization(ctx, "org_missing", OrganizationUpdate{Name: strPtr("x")})
	assert.True(t, apierr.IsNotFound(err))
}

func TestTeamMemberUniquePerOrganization(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	org, err := svc.CreateOrganization(ctx, "Acme", "")
	require.NoError(t, err)

	member, err := svc.CreateTeamMember(ctx, TeamMemberInput{
		OrganizationID: org.ID,
		Email:          "  CFO@Acme.dev ",
		DisplayName:    "Dana",
	})
	require.NoError(t, err)
	assert.Equal(t, "cfo@acme.dev", member.Email)
	assert.Equal(t, "ACCOUNTANT", member.Role)

	_, err = svc.CreateTeamMember(ctx, TeamMemberInput{
		OrganizationID: org.ID,
		Email:          "cfo@acme.dev",
		DisplayName:    "Other",
	})
	assert.True(t, apierr.IsConflict(err))

	_, err = svc.CreateTeamMember(ctx, TeamMemberInput{
		OrganizationID: "org_missing",
		Email:          "a@b.c",
		DisplayName:    "A",
	})
	assert.True(t, apierr.IsNotFound(err))
}

func TestListTeamMembers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	org, err := svc.CreateOrganization(ctx, "Acme", "")
	require.NoError(t, err)

	for _, email := range []string{"a@acme.dev", "b@acme.dev"} {
		_, err := svc.CreateTeamMember(ctx, TeamMemberInput{
			OrganizationID: org.ID, Email: email, DisplayName: email,
		})
		require.NoError(t, err)
	}

	members, err := svc.ListTeamMembers(ctx, org.ID, 0)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = svc.ListTeamMembers(ctx, "", 0)
	assert.True(t, apierr.IsInvalidInput(err))
}
