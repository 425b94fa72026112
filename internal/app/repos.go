package app

import (
	"github.com/yungbote/prism-backend/internal/data/db"
	"github.com/yungbote/prism-backend/internal/data/repos/cases"
	"github.com/yungbote/prism-backend/internal/platform/logger"
)

type Repos struct {
	// Cases is nil when DB_DRIVER=none.
	Cases cases.CaseRepo
}

func wireRepos(dbs *db.Service, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	if dbs == nil {
		return Repos{}
	}
	return Repos{
		Cases: cases.NewCaseRepo(dbs.DB(), log),
	}
}
