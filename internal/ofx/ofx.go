// Package ofx normalizes parsed OFX statements into ledger records.
package ofx

import (
	"fmt"
	"os"

	"github.com/aclindsa/ofxgo"
	"github.com/rs/zerolog/log"

	"github.com/vaultbook/vaultbook/internal/database"
	"github.com/vaultbook/vaultbook/internal/database/repository"
)

// LoadFile parses one OFX export and returns its transactions as normalized
// records. A file that cannot be parsed wraps ErrImport so callers can skip
// it and continue with the rest of a batch.
func LoadFile(path string) ([]repository.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", database.ErrImport, path, err)
	}
	defer f.Close()

	resp, err := ofxgo.ParseResponse(f)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", database.ErrImport, path, err)
	}
	records := Normalize(resp)
	log.Info().Str("file", path).Int("records", len(records)).Msg("loaded statement file")
	return records, nil
}

// Normalize flattens every bank and credit-card statement in the response.
// The account id comes from the statement's own account aggregate. Check
// numbers only exist on bank statements; everything else gets "".
func Normalize(resp *ofxgo.Response) []repository.Record {
	var out []repository.Record
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		account := stmt.BankAcctFrom.AcctID.String()
		for _, txn := range stmt.BankTranList.Transactions {
			out = append(out, fromTransaction(account, txn, true))
		}
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		account := stmt.CCAcctFrom.AcctID.String()
		for _, txn := range stmt.BankTranList.Transactions {
			out = append(out, fromTransaction(account, txn, false))
		}
	}
	return out
}

func fromTransaction(account string, txn ofxgo.Transaction, bankStatement bool) repository.Record {
	amount, _ := txn.TrnAmt.Float64()
	checknum := ""
	if bankStatement {
		cn := txn.CheckNum.String()
		checknum = repository.NormalizeChecknum(&cn)
	}
	return repository.Record{
		Account:  account,
		Type:     txn.TrnType.String(),
		Posted:   txn.DtPosted.Format(repository.PostedLayout),
		Amount:   amount,
		Name:     txn.Name.String(),
		Memo:     txn.Memo.String(),
		Checknum: checknum,
	}
}
