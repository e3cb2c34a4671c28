package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"mintgate/internal/domain"
	"mintgate/internal/infra/crypto"
	"mintgate/internal/infra/custody"
	"mintgate/internal/infra/keys"
	"mintgate/internal/infra/keys/soft"
	"mintgate/internal/infra/ledger"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

type messageFlags struct {
	requester string
	slot      string
	resource  string
}

func (m *messageFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&m.requester, "requester", "", "requester address")
	fs.StringVar(&m.slot, "slot", "", "slot (decimal or 0x hex)")
	fs.StringVar(&m.resource, "resource", "", "resource contract address")
}

func (m *messageFlags) parse() (domain.Address, domain.Slot, domain.Address, error) {
	if m.requester == "" || m.slot == "" || m.resource == "" {
		return domain.Address{}, domain.Slot{}, domain.Address{}, fmt.Errorf("--requester, --slot and --resource are required")
	}
	requester, err := domain.ParseAddress(m.requester)
	if err != nil {
		return domain.Address{}, domain.Slot{}, domain.Address{}, fmt.Errorf("parse requester: %w", err)
	}
	slot, err := domain.ParseSlot(m.slot)
	if err != nil {
		return domain.Address{}, domain.Slot{}, domain.Address{}, fmt.Errorf("parse slot: %w", err)
	}
	resource, err := domain.ParseAddress(m.resource)
	if err != nil {
		return domain.Address{}, domain.Slot{}, domain.Address{}, fmt.Errorf("parse resource: %w", err)
	}
	return requester, slot, resource, nil
}

type hashOutput struct {
	Message string `json:"message"`
	Hash    string `json:"hash"`
}

func runHash(args []string) int {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var msg messageFlags
	var outPath string
	msg.register(fs)
	fs.StringVar(&outPath, "out", "", "output path (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	requester, slot, resource, err := msg.parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	canonical := crypto.Canonicalize(requester, slot, resource)
	return writeJSON(outPath, hashOutput{
		Message: "0x" + hex.EncodeToString(canonical.Bytes),
		Hash:    canonical.Hash.Hex(),
	})
}

func runSign(args []string) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var msg messageFlags
	var keyHex string
	var outPath string
	msg.register(fs)
	fs.StringVar(&keyHex, "key-hex", "", "secp256k1 private key hex")
	fs.StringVar(&outPath, "out", "", "output path (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	requester, slot, resource, err := msg.parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	key, err := crypto.ParsePrivateKeyHex(keyHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse key: %v\n", err)
		return 1
	}

	ref := domain.KeyRef{Purpose: domain.KeyPurposeVoucher, KID: "cli"}
	signer := keys.NewVoucherSigner(soft.NewManager(map[domain.KeyRef]*secp256k1.PrivateKey{ref: key}), ref)
	voucher, err := signer.Sign(context.Background(), crypto.Canonicalize(requester, slot, resource).Hash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		return 1
	}
	return writeJSON(outPath, custody.EncodeVoucher(voucher))
}

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var msg messageFlags
	var hashHex string
	var sigHex string
	var signerHex string
	msg.register(fs)
	fs.StringVar(&hashHex, "hash", "", "voucher hash hex")
	fs.StringVar(&sigHex, "signature", "", "voucher signature hex")
	fs.StringVar(&signerHex, "signer", "", "expected signer address")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	requester, slot, resource, err := msg.parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	hash, err := domain.ParseHash(hashHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse hash: %v\n", err)
		return 1
	}
	sig, err := domain.ParseSignature(sigHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse signature: %v\n", err)
		return 1
	}
	signer, err := domain.ParseAddress(signerHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse signer: %v\n", err)
		return 1
	}

	voucher := domain.Voucher{Hash: hash, Signature: sig}
	if err := crypto.NewService().VerifyVoucher(voucher, requester, slot, resource, signer); err != nil {
		fmt.Fprintf(os.Stderr, "verification failed: %v\n", err)
		return 1
	}
	fmt.Fprintln(os.Stdout, "ok")
	return 0
}

func runSlot(args []string) int {
	fs := flag.NewFlagSet("slot", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var rpcURL string
	var resourceHex string
	var method string
	var timeout time.Duration
	fs.StringVar(&rpcURL, "rpc", os.Getenv("ETH_RPC_URL"), "JSON-RPC endpoint")
	fs.StringVar(&resourceHex, "resource", "", "resource contract address")
	fs.StringVar(&method, "method", ledger.DefaultCounterMethod, "counter function signature")
	fs.DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if rpcURL == "" || resourceHex == "" {
		fmt.Fprintln(os.Stderr, "slot requires --rpc and --resource")
		return 1
	}
	resource, err := domain.ParseAddress(resourceHex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse resource: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	slot, err := ledger.New(rpcURL, method, timeout).CurrentSlot(ctx, resource)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read slot: %v\n", err)
		return 1
	}
	fmt.Fprintln(os.Stdout, slot.String())
	return 0
}
