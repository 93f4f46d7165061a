package models

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
	"bitbucket.org/mmsoftdev/shopbooks_backend/utils"
)

// Per-record storage estimates in bytes. These are deliberately rough; the
// point is a stable, explainable quota rather than byte-exact accounting.
const (
	userRecordBytes        = 300
	customerRecordBytes    = 500
	wholesalerRecordBytes  = 500
	billRecordBytes        = 1024
	paymentRecordBytes     = 400
	transactionRecordBytes = 350

	storageLimitBytes = 100 * 1024 * 1024
)

// FormatBytes renders a byte count using base-1024 units with two decimals.
func FormatBytes(bytes int64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d Bytes", bytes)
	}
	units := []string{"KB", "MB", "GB", "TB"}
	value := float64(bytes)
	for _, unit := range units {
		value /= 1024
		if value < 1024 || unit == "TB" {
			return fmt.Sprintf("%.2f %s", value, unit)
		}
	}
	return fmt.Sprintf("%.2f TB", value)
}

type StorageBreakdown struct {
	Customers    int64 `json:"customers"`
	Wholesalers  int64 `json:"wholesalers"`
	Bills        int64 `json:"bills"`
	Payments     int64 `json:"payments"`
	Transactions int64 `json:"transactions"`
}

type StorageUsage struct {
	ShopkeeperId   int              `json:"shopkeeper_id"`
	ShopName       string           `json:"shop_name,omitempty"`
	Counts         StorageBreakdown `json:"counts"`
	UsedBytes      int64            `json:"used_bytes"`
	UsedFormatted  string           `json:"used_formatted"`
	LimitBytes     int64            `json:"limit_bytes"`
	LimitFormatted string           `json:"limit_formatted"`
	UsedPercent    float64          `json:"used_percent"`
}

func computeStorageUsage(ctx context.Context, shopkeeperId int) (*StorageUsage, error) {
	usage := StorageUsage{
		ShopkeeperId: shopkeeperId,
		LimitBytes:   storageLimitBytes,
	}

	var err error
	if usage.Counts.Customers, err = utils.ResourceCountWhere[Customer](ctx, shopkeeperId, ""); err != nil {
		return nil, err
	}
	if usage.Counts.Wholesalers, err = utils.ResourceCountWhere[Wholesaler](ctx, shopkeeperId, ""); err != nil {
		return nil, err
	}
	if usage.Counts.Bills, err = utils.ResourceCountWhere[Bill](ctx, shopkeeperId, ""); err != nil {
		return nil, err
	}
	if usage.Counts.Payments, err = utils.ResourceCountWhere[Payment](ctx, shopkeeperId, ""); err != nil {
		return nil, err
	}
	if usage.Counts.Transactions, err = utils.ResourceCountWhere[CashTransaction](ctx, shopkeeperId, ""); err != nil {
		return nil, err
	}

	usage.UsedBytes = userRecordBytes +
		usage.Counts.Customers*customerRecordBytes +
		usage.Counts.Wholesalers*wholesalerRecordBytes +
		usage.Counts.Bills*billRecordBytes +
		usage.Counts.Payments*paymentRecordBytes +
		usage.Counts.Transactions*transactionRecordBytes

	usage.UsedFormatted = FormatBytes(usage.UsedBytes)
	usage.LimitFormatted = FormatBytes(usage.LimitBytes)
	usage.UsedPercent = float64(usage.UsedBytes) / float64(usage.LimitBytes) * 100
	return &usage, nil
}

// GetStorageUsage reports the estimated footprint for the calling shopkeeper.
func GetStorageUsage(ctx context.Context) (*StorageUsage, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}
	return computeStorageUsage(ctx, shopkeeperId)
}

// GetAllStorage reports the footprint of every shopkeeper. Admin only.
func GetAllStorage(ctx context.Context) ([]*StorageUsage, error) {
	db := config.GetDB()

	var users []User
	err := db.WithContext(ctx).
		Where("role = ?", UserRoleShopkeeper).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	usages := make([]*StorageUsage, 0, len(users))
	for _, user := range users {
		usage, err := computeStorageUsage(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		usage.ShopName = user.ShopName
		usages = append(usages, usage)
	}
	return usages, nil
}

type StorageComparison struct {
	Shops        []*StorageUsage `json:"shops"`
	Highest      *StorageUsage   `json:"highest"`
	Lowest       *StorageUsage   `json:"lowest"`
	AverageBytes int64           `json:"average_bytes"`
	AverageText  string          `json:"average_formatted"`
}

// CompareStorage ranks all shops by footprint. Admin only.
func CompareStorage(ctx context.Context) (*StorageComparison, error) {
	usages, err := GetAllStorage(ctx)
	if err != nil {
		return nil, err
	}
	if len(usages) == 0 {
		return &StorageComparison{Shops: usages, AverageText: FormatBytes(0)}, nil
	}

	sort.Slice(usages, func(i, j int) bool {
		return usages[i].UsedBytes > usages[j].UsedBytes
	})

	var totalBytes int64
	for _, usage := range usages {
		totalBytes += usage.UsedBytes
	}
	average := totalBytes / int64(len(usages))

	return &StorageComparison{
		Shops:        usages,
		Highest:      usages[0],
		Lowest:       usages[len(usages)-1],
		AverageBytes: average,
		AverageText:  FormatBytes(average),
	}, nil
}
