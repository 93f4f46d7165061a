package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"bitbucket.org/mmsoftdev/shopbooks_backend/utils"
	"github.com/shopspring/decimal"
)

// End-to-end posting flow against real MySQL and Redis: a credit sale raises
// the customer's outstanding due, a standalone payment settles the linked
// bill, and deleting the bill reverses everything it posted.
func TestBillingFlowPostsAndReversesCustomerBalance(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "shopbooks_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := models.MigrateTable(); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}

	ctx := context.Background()

	shopkeeper, err := models.SignUp(ctx, &models.NewUser{
		Name:     "Mg Mg",
		Email:    "mgmg@test.local",
		Password: "secret123",
		ShopName: "Mg Mg Store",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	ctx = utils.SetShopkeeperIdInContext(ctx, shopkeeper.ID)
	ctx = utils.SetUserIdInContext(ctx, shopkeeper.ID)

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{
		Name:         "Aung Aung",
		Phone:        "09795551234",
		Address:      "No. 12, Bogyoke Road, Yangon",
		Type:         models.CustomerTypeDue,
		InitialSales: decimal.NewFromInt(500),
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	if !customer.OutstandingDue.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("opening outstanding = %s, want 500", customer.OutstandingDue)
	}

	// Credit sale: 1000 billed, 300 paid on the spot.
	method := models.PaymentMethodCash
	bill, err := models.CreateBill(ctx, &models.NewBill{
		BillType:      models.BillTypeSale,
		EntityType:    models.EntityTypeDueCustomer,
		EntityId:      customer.ID,
		TotalAmount:   decimal.NewFromInt(1000),
		PaidAmount:    decimal.NewFromInt(300),
		PaymentMethod: &method,
	})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}
	if !bill.DueAmount.Equal(decimal.NewFromInt(700)) {
		t.Fatalf("bill due = %s, want 700", bill.DueAmount)
	}
	assertPostingLockFree(t, shopkeeper.ID)

	customer, err = models.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer after bill: %v", err)
	}
	if !customer.OutstandingDue.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("outstanding after bill = %s, want 1200 (500 opening + 700 due)", customer.OutstandingDue)
	}

	// The paid portion must appear as a cash transaction and a mirrored payment.
	db := config.GetDB()
	var txnCount int64
	if err := db.WithContext(ctx).Model(&models.CashTransaction{}).
		Where("shopkeeper_id = ? AND reference = ?", shopkeeper.ID, bill.BillNumber).
		Count(&txnCount).Error; err != nil {
		t.Fatalf("count cash transactions: %v", err)
	}
	if txnCount != 1 {
		t.Fatalf("cash transactions for bill = %d, want 1", txnCount)
	}

	// Standalone payment linked to the bill settles the remaining 700.
	_, err = models.CreatePayment(ctx, &models.NewPayment{
		EntityType:    models.PaymentEntityCustomer,
		EntityId:      customer.ID,
		Amount:        decimal.NewFromInt(700),
		PaymentMethod: models.PaymentMethodCash,
		BillId:        &bill.ID,
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	assertPostingLockFree(t, shopkeeper.ID)

	bill, err = models.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetBill after payment: %v", err)
	}
	if !bill.DueAmount.IsZero() {
		t.Fatalf("bill due after settling payment = %s, want 0", bill.DueAmount)
	}

	customer, err = models.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer after payment: %v", err)
	}
	if !customer.OutstandingDue.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("outstanding after payment = %s, want 500 (only the opening remains)", customer.OutstandingDue)
	}
	if customer.LastPaymentDate == nil {
		t.Fatal("last payment date not stamped")
	}

	// Deleting the bill reverses its posting and removes its side records.
	if _, err := models.DeleteBill(ctx, bill.ID); err != nil {
		t.Fatalf("DeleteBill: %v", err)
	}
	customer, err = models.GetCustomer(ctx, customer.ID)
	if err != nil {
		t.Fatalf("GetCustomer after delete: %v", err)
	}
	// Payments linked to the bill are removed with it, and the reversal of
	// the fully settled bill (total 1000, paid 1000) nets to zero, so only
	// the opening balance remains.
	if !customer.OutstandingDue.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("outstanding after delete = %s, want 500", customer.OutstandingDue)
	}
	var paymentCount int64
	if err := db.WithContext(ctx).Model(&models.Payment{}).
		Where("shopkeeper_id = ? AND bill_id = ?", shopkeeper.ID, bill.ID).
		Count(&paymentCount).Error; err != nil {
		t.Fatalf("count linked payments after delete: %v", err)
	}
	if paymentCount != 0 {
		t.Fatalf("linked payments after delete = %d, want 0", paymentCount)
	}
	if err := db.WithContext(ctx).Model(&models.CashTransaction{}).
		Where("shopkeeper_id = ? AND reference = ?", shopkeeper.ID, bill.BillNumber).
		Count(&txnCount).Error; err != nil {
		t.Fatalf("count cash transactions after delete: %v", err)
	}
	if txnCount != 0 {
		t.Fatalf("cash transactions after delete = %d, want 0", txnCount)
	}

	// Second delete is a no-op.
	if _, err := models.DeleteBill(ctx, bill.ID); err != nil {
		t.Fatalf("repeat DeleteBill: %v", err)
	}
	assertPostingLockFree(t, shopkeeper.ID)

	// Walk-in sales are forced fully paid, so an edit that omits the payment
	// method must be rejected instead of clearing the stored method.
	walkIn, err := models.CreateBill(ctx, &models.NewBill{
		BillType:      models.BillTypeSale,
		EntityType:    models.EntityTypeNormalCustomer,
		TotalAmount:   decimal.NewFromInt(250),
		PaymentMethod: &method,
	})
	if err != nil {
		t.Fatalf("CreateBill walk-in: %v", err)
	}
	_, err = models.UpdateBill(ctx, walkIn.ID, &models.NewBill{
		BillType:    models.BillTypeSale,
		EntityType:  models.EntityTypeNormalCustomer,
		EntityName:  walkIn.EntityName,
		TotalAmount: decimal.NewFromInt(300),
	})
	if err == nil {
		t.Fatal("walk-in update without payment method succeeded, want error")
	}
	updated, err := models.UpdateBill(ctx, walkIn.ID, &models.NewBill{
		BillType:      models.BillTypeSale,
		EntityType:    models.EntityTypeNormalCustomer,
		EntityName:    walkIn.EntityName,
		TotalAmount:   decimal.NewFromInt(300),
		PaymentMethod: &method,
	})
	if err != nil {
		t.Fatalf("UpdateBill walk-in: %v", err)
	}
	if !updated.PaidAmount.Equal(decimal.NewFromInt(300)) || updated.PaymentMethod == nil {
		t.Fatalf("walk-in after update: paid = %s, method = %v, want 300/cash", updated.PaidAmount, updated.PaymentMethod)
	}
	assertPostingLockFree(t, shopkeeper.ID)

	// The edit history association must come back preloaded.
	walkIn, err = models.GetBill(ctx, walkIn.ID)
	if err != nil {
		t.Fatalf("GetBill walk-in after update: %v", err)
	}
	if len(walkIn.EditHistory) != 1 {
		t.Fatalf("edit history entries = %d, want 1", len(walkIn.EditHistory))
	}

	// Admin lifecycle of a shopkeeper account: create, fetch, edit, delete.
	second, err := models.SignUp(ctx, &models.NewUser{
		Name:     "Su Su",
		Email:    "susu@test.local",
		Password: "secret123",
		ShopName: "Su Su Store",
	})
	if err != nil {
		t.Fatalf("SignUp second shopkeeper: %v", err)
	}
	fetched, err := models.GetShopkeeper(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetShopkeeper: %v", err)
	}
	if fetched.Email != "susu@test.local" {
		t.Fatalf("fetched shopkeeper email = %q", fetched.Email)
	}
	newShopName := "Su Su Mart"
	inactive := false
	fetched, err = models.UpdateShopkeeper(ctx, second.ID, &models.UpdateShopkeeperInput{
		ShopName: &newShopName,
		IsActive: &inactive,
	})
	if err != nil {
		t.Fatalf("UpdateShopkeeper: %v", err)
	}
	if fetched.ShopName != newShopName || fetched.IsActive == nil || *fetched.IsActive {
		t.Fatalf("updated shopkeeper: shop = %q, active = %v", fetched.ShopName, fetched.IsActive)
	}
	if err := models.DeleteShopkeeper(ctx, second.ID); err != nil {
		t.Fatalf("DeleteShopkeeper: %v", err)
	}
	if _, err := models.GetShopkeeper(ctx, second.ID); err == nil {
		t.Fatal("deleted shopkeeper still fetchable")
	}
	if err := models.DeleteShopkeeper(ctx, second.ID); err == nil {
		t.Fatal("deleting a missing shopkeeper succeeded, want not-found")
	}
}

// Advisory posting locks are connection-scoped, so a lock left behind after a
// posting would keep blocking the shopkeeper until the pooled connection is
// recycled. Every posting must leave the lock free.
func assertPostingLockFree(t *testing.T, shopkeeperId int) {
	t.Helper()
	var free int
	err := config.GetDB().
		Raw("SELECT IS_FREE_LOCK(?)", fmt.Sprintf("posting:shopkeeper:%d", shopkeeperId)).
		Scan(&free).Error
	if err != nil {
		t.Fatalf("IS_FREE_LOCK: %v", err)
	}
	if free != 1 {
		t.Fatalf("posting lock for shopkeeper %d still held after posting", shopkeeperId)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("shopbooks-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("shopbooks-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=shopbooks_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
