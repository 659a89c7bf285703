package service

import "context"

type testTxRepos struct {
	chunks  ChunkRepositoryInterface
	assets  AssetRepositoryInterface
	audits  AuditRepositoryInterface
	journey JourneyRepositoryInterface
}

func (t *testTxRepos) Chunks() ChunkRepositoryInterface {
	return t.chunks
}

func (t *testTxRepos) Assets() AssetRepositoryInterface {
	return t.assets
}

func (t *testTxRepos) Audits() AuditRepositoryInterface {
	return t.audits
}

func (t *testTxRepos) Journey() JourneyRepositoryInterface {
	return t.journey
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
