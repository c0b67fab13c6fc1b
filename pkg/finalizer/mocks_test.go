package finalizer

import (
	"context"
	"time"

	"github.com/chainsafe/transfer-indexer/pkg/indexerdb/dao"
)

type mockStore struct {
	pendingBurns       func(ctx context.Context) ([]*dao.CctpBurnDao, error)
	burnByID           func(ctx context.Context, id int64) (*dao.CctpBurnDao, error)
	messageSentForBurn func(ctx context.Context, burnEventID int64) (*dao.CctpMessageSentDao, error)
	setMessageNonce    func(ctx context.Context, messageID, nonce int64) error
	sponsoredBurnsInTx func(ctx context.Context, chainID uint64, txHash string) ([]*dao.CctpSponsoredBurnDao, error)
	sponsoredBurnByID  func(ctx context.Context, id int64) (*dao.CctpSponsoredBurnDao, error)
	linkSponsoredBurn  func(ctx context.Context, sponsoredID, burnEventID int64) error
	upsertFinalizerJob func(ctx context.Context, job *dao.FinalizerJobDao) error
	staleJobs          func(ctx context.Context, olderThan time.Time) ([]*dao.FinalizerJobDao, error)
	mintExists         func(ctx context.Context, sourceDomain uint32, nonce int64) (bool, error)
}

func (m *mockStore) PendingBurns(ctx context.Context) ([]*dao.CctpBurnDao, error) {
	if m.pendingBurns == nil {
		return nil, nil
	}
	return m.pendingBurns(ctx)
}

func (m *mockStore) BurnByID(ctx context.Context, id int64) (*dao.CctpBurnDao, error) {
	if m.burnByID == nil {
		return nil, nil
	}
	return m.burnByID(ctx, id)
}

func (m *mockStore) MessageSentForBurn(ctx context.Context, burnEventID int64) (*dao.CctpMessageSentDao, error) {
	if m.messageSentForBurn == nil {
		return nil, nil
	}
	return m.messageSentForBurn(ctx, burnEventID)
}

func (m *mockStore) SetMessageNonce(ctx context.Context, messageID, nonce int64) error {
	if m.setMessageNonce == nil {
		return nil
	}
	return m.setMessageNonce(ctx, messageID, nonce)
}

func (m *mockStore) SponsoredBurnsInTx(ctx context.Context, chainID uint64, txHash string) ([]*dao.CctpSponsoredBurnDao, error) {
	if m.sponsoredBurnsInTx == nil {
		return nil, nil
	}
	return m.sponsoredBurnsInTx(ctx, chainID, txHash)
}

func (m *mockStore) SponsoredBurnByID(ctx context.Context, id int64) (*dao.CctpSponsoredBurnDao, error) {
	if m.sponsoredBurnByID == nil {
		return nil, nil
	}
	return m.sponsoredBurnByID(ctx, id)
}

func (m *mockStore) LinkSponsoredBurn(ctx context.Context, sponsoredID, burnEventID int64) error {
	if m.linkSponsoredBurn == nil {
		return nil
	}
	return m.linkSponsoredBurn(ctx, sponsoredID, burnEventID)
}

func (m *mockStore) UpsertFinalizerJob(ctx context.Context, job *dao.FinalizerJobDao) error {
	if m.upsertFinalizerJob == nil {
		return nil
	}
	return m.upsertFinalizerJob(ctx, job)
}

func (m *mockStore) StaleJobs(ctx context.Context, olderThan time.Time) ([]*dao.FinalizerJobDao, error) {
	if m.staleJobs == nil {
		return nil, nil
	}
	return m.staleJobs(ctx, olderThan)
}

func (m *mockStore) MintExists(ctx context.Context, sourceDomain uint32, nonce int64) (bool, error) {
	if m.mintExists == nil {
		return false, nil
	}
	return m.mintExists(ctx, sourceDomain, nonce)
}

type mockAttestor struct {
	fetch func(ctx context.Context, domain uint32, txHash string) (*AttestationMessage, error)
}

func (m *mockAttestor) FetchAttestation(ctx context.Context, domain uint32, txHash string) (*AttestationMessage, error) {
	if m.fetch == nil {
		return nil, nil
	}
	return m.fetch(ctx, domain, txHash)
}

type mockPublisher struct {
	published []*PublishRequest
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, req *PublishRequest) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, req)
	return nil
}
