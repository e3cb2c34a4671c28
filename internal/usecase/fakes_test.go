package usecase

import (
	"context"
	"sync"

	"mintgate/internal/domain"
)

type verifierStub struct {
	verdict domain.AdmissionVerdict
	err     error
	calls   int
	tokens  []string
}

func (v *verifierStub) Verify(_ context.Context, token string) (domain.AdmissionVerdict, error) {
	v.calls++
	v.tokens = append(v.tokens, token)
	return v.verdict, v.err
}

type oracleStub struct {
	slot  domain.Slot
	err   error
	calls int
}

func (o *oracleStub) CurrentSlot(context.Context, domain.Address) (domain.Slot, error) {
	o.calls++
	return o.slot, o.err
}

type signerStub struct {
	err   error
	calls int
}

func (s *signerStub) Sign(_ context.Context, hash domain.Hash) (domain.Voucher, error) {
	s.calls++
	if s.err != nil {
		return domain.Voucher{}, s.err
	}
	return domain.Voucher{Hash: hash, Signature: make([]byte, domain.SignatureLength)}, nil
}

type policyStub struct {
	result domain.PolicyResult
	err    error
}

func (p *policyStub) Evaluate(context.Context, domain.PolicyInput) (domain.PolicyEvaluation, error) {
	return domain.PolicyEvaluation{Result: p.result}, p.err
}

type metricsStub struct {
	mu       sync.Mutex
	observed []string
	quota    int
}

func (m *metricsStub) ObserveIssuance(stage domain.Stage, outcome domain.IssuanceOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed = append(m.observed, string(stage)+"/"+string(outcome))
}

func (m *metricsStub) QuotaExceeded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quota++
}

type eventRepoStub struct {
	events []domain.IssuanceEvent
	err    error
}

func (r *eventRepoStub) Append(_ context.Context, event domain.IssuanceEvent) (domain.IssuanceEvent, error) {
	if r.err != nil {
		return domain.IssuanceEvent{}, r.err
	}
	r.events = append(r.events, event)
	return event, nil
}
