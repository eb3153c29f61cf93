package app

import (
	"gorm.io/gorm"

	connectionrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/connection"
	introductionrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/introduction"
	matchrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/match"
	memberrepo "github.com/kindredlabs/kindred-backend/internal/data/repos/member"
	profilerepo "github.com/kindredlabs/kindred-backend/internal/data/repos/profile"
	quotarepo "github.com/kindredlabs/kindred-backend/internal/data/repos/quota"
	"github.com/kindredlabs/kindred-backend/internal/platform/logger"
)

type Repos struct {
	Member       memberrepo.MemberRepo
	Profile      profilerepo.ProfileRepo
	Match        matchrepo.MatchRepo
	Introduction introductionrepo.IntroductionRepo
	Quota        quotarepo.QuotaRepo
	Connection   connectionrepo.ConnectionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("wiring repositories")
	return Repos{
		Member:       memberrepo.NewMemberRepo(db, log),
		Profile:      profilerepo.NewProfileRepo(db, log),
		Match:        matchrepo.NewMatchRepo(db, log),
		Introduction: introductionrepo.NewIntroductionRepo(db, log),
		Quota:        quotarepo.NewQuotaRepo(db, log),
		Connection:   connectionrepo.NewConnectionRepo(db, log),
	}
}
