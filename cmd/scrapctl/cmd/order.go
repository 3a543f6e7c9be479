package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Raj-venom/scrap-dai-client/internal/api"
	"github.com/Raj-venom/scrap-dai-client/internal/catalog"
	"github.com/Raj-venom/scrap-dai-client/internal/draft"
	"github.com/Raj-venom/scrap-dai-client/internal/geo"
	"github.com/Raj-venom/scrap-dai-client/internal/media"
	"github.com/Raj-venom/scrap-dai-client/internal/session"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Place a pickup order",
}

var orderCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Walk the five order steps and submit",
	Long: `Create a pickup order. Each flag group fills one step of the wizard:

  1. materials      --material <categoryId> (repeatable)
  2. subcategories  --item <scrapId>[=<kg>] (repeatable, default 1 kg)
  3. pickup         --date YYYY-MM-DD --time "<slot>" --address "<text>"
                    [--at lat,lon] [--locate]
  4. images         --image <path> (1 to 4)
  5. confirm        payment is cash on pickup

Time slots: ` + slotList() + `

Examples:
  scrapctl order create --material metal --item steel=3 --date "$(date -d tomorrow +%F)" \
      --time "7 AM - 9 AM" --address Kathmandu --image ./steel.jpg
  scrapctl order create ... --at 27.7172,85.3240 --locate --dry-run`,
	RunE: runOrderCreate,
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "View and cancel your orders",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your orders",
	RunE:  runOrdersList,
}

var ordersGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one order",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrdersGet,
}

var ordersCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a pending order",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrdersCancel,
}

func init() {
	f := orderCreateCmd.Flags()
	f.StringArray("material", nil, "material (category) id")
	f.StringArray("item", nil, "scrap id with optional weight in kg, e.g. steel=2.5")
	f.String("date", "", "pickup date (YYYY-MM-DD, today or later)")
	f.String("time", "", "pickup time slot")
	f.String("address", "", "pickup address")
	f.String("at", "", "pickup coordinates as lat,lon")
	f.Bool("locate", false, "fill --address by reverse geocoding --at")
	f.StringArray("image", nil, "path to a scrap photo (1 to 4)")
	f.Bool("dry-run", false, "build and print the order without submitting")

	ordersListCmd.Flags().String("status", "", "filter by status (pending, accepted, completed, cancelled)")

	orderCmd.AddCommand(orderCreateCmd)
	ordersCmd.AddCommand(ordersListCmd)
	ordersCmd.AddCommand(ordersGetCmd)
	ordersCmd.AddCommand(ordersCancelCmd)

	rootCmd.AddCommand(orderCmd)
	rootCmd.AddCommand(ordersCmd)
}

func slotList() string {
	names := make([]string, len(draft.TimeSlots))
	for i, s := range draft.TimeSlots {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func runOrderCreate(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	materials, _ := f.GetStringArray("material")
	items, _ := f.GetStringArray("item")
	date, _ := f.GetString("date")
	slotName, _ := f.GetString("time")
	address, _ := f.GetString("address")
	at, _ := f.GetString("at")
	locate, _ := f.GetBool("locate")
	images, _ := f.GetStringArray("image")
	dryRun, _ := f.GetBool("dry-run")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if !dryRun {
		if err := a.requireRole(ctx, session.RoleUser); err != nil {
			return err
		}
	}

	svc, err := a.catalogService()
	if err != nil {
		return err
	}
	snap, err := svc.Snapshot(ctx)
	if err != nil {
		return err
	}

	d := draft.New(draft.WithCatalog(snap))
	wiz := draft.NewWizard(d)

	// Step 1
	for _, m := range materials {
		if _, ok := snap.Category(m); !ok {
			return fmt.Errorf("unknown material %q, see 'scrapctl catalog list'", m)
		}
	}
	d.SetMaterials(materials)
	if err := wiz.Next(); err != nil {
		return err
	}

	// Step 2
	if err := applyItems(d, items); err != nil {
		return err
	}
	if err := checkItemsInMaterials(snap, d); err != nil {
		return err
	}
	if err := wiz.Next(); err != nil {
		return err
	}

	// Step 3
	var pos geo.Coordinate
	if at != "" {
		if pos, err = parseCoordinate(at); err != nil {
			return err
		}
	}
	if locate {
		if at == "" {
			return errors.New("--locate needs --at")
		}
		g := geo.NewGeocoder(cfg.Geo.GeocoderURL, geoOptions()...)
		if address, err = g.Reverse(ctx, pos); err != nil {
			return fmt.Errorf("failed to resolve address: %w", err)
		}
	}
	slot, err := draft.ParseTimeSlot(slotName)
	if err != nil {
		return fmt.Errorf("%w (choose one of: %s)", err, slotList())
	}
	err = d.SetPickupDetails(date, slot, draft.Address{
		FormattedAddress: address,
		Latitude:         pos.Lat,
		Longitude:        pos.Lon,
	})
	if err != nil {
		return err
	}
	if err := wiz.Next(); err != nil {
		return err
	}

	// Step 4
	attached := make([]draft.Image, 0, len(images))
	for _, p := range images {
		mimeType, err := media.Sniff(p)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		attached = append(attached, draft.Image{LocalURI: "file://" + abs, MimeType: mimeType})
	}
	if err := d.SetImages(attached); err != nil {
		return err
	}
	if err := wiz.Next(); err != nil {
		return err
	}

	// Step 5
	payload, err := d.BuildSubmissionPayload()
	if err != nil {
		var cerr *draft.CatalogError
		if errors.As(err, &cerr) {
			return fmt.Errorf("scrap %s is no longer in the catalog; run 'scrapctl catalog list --refresh'", cerr.SubcategoryID)
		}
		return err
	}

	if dryRun {
		if ok, err := printStructured(payload); ok {
			return err
		}
		printPayload(snap, payload)
		fmt.Println("Dry run: order not submitted")
		return nil
	}

	order, err := a.client.Orders.Create(ctx, payload)
	if err != nil {
		return err
	}
	wiz.Abandon()

	if ok, err := printStructured(order); ok {
		return err
	}
	printPayload(snap, payload)
	fmt.Printf("%s Order placed: %s (%s)\n", colorGreen("✓"), order.ID, order.Status)
	return nil
}

// checkItemsInMaterials rejects scraps outside the selected categories.
func checkItemsInMaterials(snap *catalog.Snapshot, d *draft.Draft) error {
	selected := make(map[string]bool)
	for _, m := range d.Materials() {
		selected[m] = true
	}
	for id := range d.SubcategoryWeights() {
		s, ok := snap.Lookup(id)
		if !ok {
			return fmt.Errorf("unknown scrap %q, see 'scrapctl catalog list'", id)
		}
		if !selected[s.CategoryID] {
			return fmt.Errorf("scrap %s belongs to material %s, which is not selected", id, s.CategoryID)
		}
	}
	return nil
}

func printPayload(snap *catalog.Snapshot, p *draft.Payload) {
	w := newTable()
	printTableHeader(w, "SCRAP", "KG", "PRICE/KG", "AMOUNT")
	for _, it := range p.OrderItems {
		name, price := it.Scrap, 0.0
		if s, ok := snap.Lookup(it.Scrap); ok {
			name, price = s.Name, s.PricePerKg
		}
		fmt.Fprintf(w, "%s\t%g\t%s\t%s\n", name, it.Weight, formatAmount(price), formatAmount(it.Amount))
	}
	_ = w.Flush()

	fmt.Printf("\nEstimated total: %s (%s)\n", formatAmount(p.EstimatedAmount), p.PaymentMethod)
	fmt.Printf("Pickup: %s, %s at %s\n", p.PickUpDate, p.PickUpTime, p.PickupAddress.FormattedAddress)
	fmt.Printf("Images: %d\n", len(p.Images))
}

func runOrdersList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	orders, err := a.client.Orders.List(context.Background(), &api.ListOrdersOptions{Status: api.OrderStatus(status)})
	if err != nil {
		return err
	}
	return printOrders(orders)
}

func printOrders(orders []api.Order) error {
	if ok, err := printStructured(map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	}); ok {
		return err
	}
	if len(orders) == 0 {
		fmt.Println("No orders found")
		return nil
	}

	w := newTable()
	printTableHeader(w, "ID", "STATUS", "PICKUP", "ADDRESS", "ESTIMATE")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%s\n",
			o.ID,
			formatOrderStatus(o.Status),
			o.PickUpDate,
			o.PickUpTime,
			truncate(o.PickupAddress.FormattedAddress, 32),
			formatAmount(o.EstimatedAmount),
		)
	}
	return w.Flush()
}

func runOrdersGet(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	o, err := a.client.Orders.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	return printOrder(o)
}

func printOrder(o *api.Order) error {
	if ok, err := printStructured(o); ok {
		return err
	}

	w := newTable()
	fmt.Fprintf(w, "ID:\t%s\n", o.ID)
	fmt.Fprintf(w, "Status:\t%s\n", formatOrderStatus(o.Status))
	fmt.Fprintf(w, "Pickup:\t%s %s\n", o.PickUpDate, o.PickUpTime)
	fmt.Fprintf(w, "Address:\t%s\n", o.PickupAddress.FormattedAddress)
	fmt.Fprintf(w, "Payment:\t%s\n", o.PaymentMethod)
	fmt.Fprintf(w, "Estimate:\t%s\n", formatAmount(o.EstimatedAmount))
	for _, it := range o.OrderItems {
		fmt.Fprintf(w, "Item:\t%s %g kg = %s\n", it.Scrap, it.Weight, formatAmount(it.Amount))
	}
	fmt.Fprintf(w, "Images:\t%d\n", len(o.ScrapImages))
	if !o.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created:\t%s\n", o.CreatedAt.Local().Format("Jan 2, 2006 15:04"))
	}
	return w.Flush()
}

func runOrdersCancel(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	o, err := a.client.Orders.Cancel(context.Background(), args[0])
	if err != nil {
		return err
	}
	if ok, err := printStructured(o); ok {
		return err
	}
	fmt.Printf("%s Order cancelled: %s\n", colorGreen("✓"), o.ID)
	return nil
}

func formatOrderStatus(s api.OrderStatus) string {
	switch s {
	case api.OrderPending:
		return colorYellow("PENDING")
	case api.OrderAccepted:
		return colorGreen("ACCEPTED")
	case api.OrderCompleted:
		return colorGreen("COMPLETED")
	case api.OrderCancelled:
		return colorRed("CANCELLED")
	default:
		return strings.ToUpper(string(s))
	}
}
