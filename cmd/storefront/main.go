package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"app/internal/client/api"
	"app/internal/client/cart"
	"app/internal/client/checkout"
	"app/internal/client/notify"
	"app/internal/client/storage"
)

func main() {
	//.envは無くてもよい
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if err := run(logger, os.Args[1:]); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func run(logger zerolog.Logger, args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("no command")
	}

	baseURL := os.Getenv("API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	st, err := newStorage()
	if err != nil {
		return err
	}

	notifier := notify.NewLogNotifier(logger)
	//セッションもカートと同じストレージに保存する（コマンドをまたいで生きる）
	client := api.NewPersistentClient(baseURL, st)
	cartStore := cart.NewStore(st, notifier)
	flow := checkout.NewFlow(cartStore, client, client, notifier)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "products":
		return cmdProducts(ctx, client, rest)
	case "product":
		return cmdProduct(ctx, client, rest)
	case "login":
		return cmdLogin(ctx, client, rest)
	case "logout":
		client.SignOut()
		return nil
	case "wishlist":
		return cmdWishlist(ctx, client, rest)
	case "cart":
		return cmdCart(ctx, client, cartStore, rest)
	case "checkout":
		return cmdCheckout(ctx, flow, rest)
	case "orders":
		return cmdOrders(ctx, client)
	case "order":
		return cmdOrder(ctx, client, rest)
	default:
		usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// カートの保存先。REDIS_ADDRがあればRedis、無ければローカルファイル。
func newStorage() (storage.Store, error) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		return storage.NewRedisStore(rdb), nil
	}

	dir := os.Getenv("STOREFRONT_DATA_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".klassico")
	}
	return storage.NewFileStore(dir)
}

func cmdProducts(ctx context.Context, client *api.Client, args []string) error {
	var q api.ProductQuery
	if len(args) > 0 {
		q.Category = args[0]
	}
	list, err := client.FetchProducts(ctx, q)
	if err != nil {
		return err
	}
	for _, p := range list.Items {
		fmt.Printf("%-30s %-20s ₹%d  [%s]\n", p.Slug, p.Brand, p.Price, p.Category)
	}
	return nil
}

func cmdProduct(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: storefront product <slug>")
	}
	p, err := client.FetchProductBySlug(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n₹%d\nSizes: %v\n\n%s\n", p.Name, p.Brand, p.Price, p.Sizes, p.Description)
	return nil
}

func cmdLogin(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: storefront login <email> <password>")
	}
	u, err := client.SignIn(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", u.Email)
	return nil
}

func cmdWishlist(ctx context.Context, client *api.Client, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: storefront wishlist <list|add|remove>")
	}
	switch args[0] {
	case "list":
		items, err := client.FetchWishlist(ctx)
		if err != nil {
			return err
		}
		for _, it := range items {
			fmt.Printf("%-30s %-30s ₹%d\n", it.Slug, it.Name, it.Price)
		}
		return nil
	case "add":
		if len(args) != 2 {
			return errors.New("usage: storefront wishlist add <productId>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid product id: %s", args[1])
		}
		return client.AddToWishlist(ctx, id)
	case "remove":
		if len(args) != 2 {
			return errors.New("usage: storefront wishlist remove <productId>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid product id: %s", args[1])
		}
		return client.RemoveFromWishlist(ctx, id)
	default:
		return fmt.Errorf("unknown wishlist command: %s", args[0])
	}
}

func cmdCart(ctx context.Context, client *api.Client, store *cart.Store, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: storefront cart <list|add|remove|update|clear>")
	}
	switch args[0] {
	case "list":
		for _, it := range store.Items() {
			fmt.Printf("%-30s size=%-3s x%d  ₹%d\n", it.Product.Name, it.Size, it.Quantity, it.Product.Price*it.Quantity)
		}
		fmt.Printf("total: ₹%d (%d items)\n", store.Total(), store.ItemCount())
		return nil
	case "add":
		if len(args) < 3 {
			return errors.New("usage: storefront cart add <slug> <size> [qty]")
		}
		p, err := client.FetchProductBySlug(ctx, args[1])
		if err != nil {
			return err
		}
		qty := int64(1)
		if len(args) > 3 {
			n, err := strconv.ParseInt(args[3], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quantity: %s", args[3])
			}
			qty = n
		}
		store.AddItem(p, qty, args[2])
		return nil
	case "remove":
		if len(args) != 2 {
			return errors.New("usage: storefront cart remove <productId>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid product id: %s", args[1])
		}
		store.RemoveItem(id)
		return nil
	case "update":
		if len(args) != 3 {
			return errors.New("usage: storefront cart update <productId> <qty>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid product id: %s", args[1])
		}
		qty, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid quantity: %s", args[2])
		}
		store.UpdateQuantity(id, qty)
		return nil
	case "clear":
		store.Clear()
		return nil
	default:
		return fmt.Errorf("unknown cart command: %s", args[0])
	}
}

func cmdCheckout(ctx context.Context, flow *checkout.Flow, args []string) error {
	if len(args) != 5 {
		return errors.New("usage: storefront checkout <address> <city> <state> <postalCode> <card|upi|cod>")
	}
	order, err := flow.Submit(ctx, checkout.Form{
		Address:       args[0],
		City:          args[1],
		State:         args[2],
		PostalCode:    args[3],
		PaymentMethod: args[4],
	})
	if err != nil {
		return err
	}
	fmt.Printf("order #%d placed (₹%d, %s)\n", order.ID, order.TotalAmount, order.Status)
	return nil
}

func cmdOrders(ctx context.Context, client *api.Client) error {
	orders, err := client.FetchMyOrders(ctx)
	if err != nil {
		return err
	}
	for _, o := range orders {
		fmt.Printf("#%-6d %-10s ₹%-8d %s\n", o.ID, o.Status, o.TotalAmount, o.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func cmdOrder(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: storefront order <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid order id: %s", args[0])
	}
	o, err := client.FetchOrderDetail(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("#%d %s ₹%d\n%s / %s\n", o.ID, o.Status, o.TotalAmount, o.ShippingAddress, o.PaymentMethod)
	for _, it := range o.Items {
		fmt.Printf("  product=%d size=%-3s x%d ₹%d\n", it.ProductID, it.Size, it.Quantity, it.Price)
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: storefront <command>

  products [category]
  product <slug>
  login <email> <password>
  logout
  wishlist list|add|remove
  cart list|add|remove|update|clear
  checkout <address> <city> <state> <postalCode> <card|upi|cod>
  orders
  order <id>`)
}
