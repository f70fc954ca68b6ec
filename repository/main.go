package repository

import (
	"github.com/tnqbao/gau-stitch-service/infra"
)

type Repository struct {
	JobRepo *JobRepository
}

var repository *Repository

func InitRepository(infra *infra.Infra) *Repository {
	var mirror SnapshotMirror
	if infra.Redis != nil {
		mirror = infra.Redis
	}
	repository = &Repository{
		JobRepo: NewJobRepository(mirror),
	}
	return repository
}

func GetRepository() *Repository {
	if repository == nil {
		panic("repository not initialized")
	}
	return repository
}
