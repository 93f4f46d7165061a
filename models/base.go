package models

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
	"gorm.io/gorm"
)

const billNumberPrefix = "BILL"

const billNumberRandomLen = 6

var base36Alphabet = []byte("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ")

// GenerateBillNumber returns "BILL-YYYYMM-XXXXXX" where the suffix is a random
// base36 string. Collisions are caught by the unique index on (shopkeeper_id,
// bill_number); callers retry on duplicate-key errors.
func GenerateBillNumber(now time.Time) string {
	suffix := make([]byte, billNumberRandomLen)
	for i := range suffix {
		suffix[i] = base36Alphabet[rand.Intn(len(base36Alphabet))]
	}
	return fmt.Sprintf("%s-%s-%s", billNumberPrefix, now.Format("200601"), string(suffix))
}

var invoiceNumberPattern = regexp.MustCompile(`^INV-(\d{4})-(\d{2})-(\d+)$`)

// NextInvoiceNumber returns "INV-YYYY-MM-XXXX" with a 4-digit sequence.
// The sequence continues from lastNumber when it belongs to the same
// year/month, and restarts at 0001 otherwise (or when lastNumber is empty or
// unparseable).
func NextInvoiceNumber(lastNumber string, now time.Time) string {
	seq := 1
	if m := invoiceNumberPattern.FindStringSubmatch(strings.TrimSpace(lastNumber)); m != nil {
		if m[1] == now.Format("2006") && m[2] == now.Format("01") {
			if last, err := strconv.Atoi(m[3]); err == nil {
				seq = last + 1
			}
		}
	}
	return fmt.Sprintf("INV-%s-%s-%04d", now.Format("2006"), now.Format("01"), seq)
}

// AcquireShopkeeperPostingLock serializes bill/payment posting per shopkeeper
// across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will do the posting transaction.
func AcquireShopkeeperPostingLock(tx *gorm.DB, shopkeeperId int) error {
	lockName := fmt.Sprintf("posting:shopkeeper:%d", shopkeeperId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire posting lock for shopkeeper_id=%d", shopkeeperId)
	}
	return nil
}

// ReleaseShopkeeperPostingLock must run on the still-open transaction, before
// Commit or Rollback. RELEASE_LOCK on a finished *sql.Tx is a no-op that
// returns ErrTxDone, and the pooled connection would keep holding the lock.
func ReleaseShopkeeperPostingLock(tx *gorm.DB, shopkeeperId int) {
	lockName := fmt.Sprintf("posting:shopkeeper:%d", shopkeeperId)
	var ok int
	if err := tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&ok).Error; err != nil {
		config.GetLogger().Warn(fmt.Sprintf("failed to release %s: %s", lockName, err.Error()))
	}
}
