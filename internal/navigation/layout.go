package navigation

// Layout holds every scripting ID the robot touches. ME22N is addressed by
// fixed IDs on a UI that SAP versions independently; when a support package
// moves a field, this struct is the one place to change.
type Layout struct {
	MainWindow string
	OKCode     string
	StatusBar  string
	SaveButton string

	// Popup handling.
	PopupWindow  string
	PopupCancel  string
	PopupConfirm string
	PopupLeave   string

	// Order selection dialog ("Other Purchase Order").
	OtherOrderButton string
	OrderNumberField string

	// Item overview table and its item number column. ItemNumberCell takes
	// the visible row index.
	ItemTable      string
	ItemNumberCell string

	// Item detail: the item selector combo and the delivery date of the
	// first schedule line.
	ItemSelector     string
	DeliveryDateCell string
}

const (
	itemOverview = "wnd[0]/usr/subSUB0:SAPLMEGUI:0015/subSUB2:SAPLMEVIEWS:1100/subSUB2:SAPLMEVIEWS:1200/subSUB1:SAPLMEGUI:1211"
	itemDetail   = "wnd[0]/usr/subSUB0:SAPLMEGUI:0015/subSUB3:SAPLMEVIEWS:1100/subSUB2:SAPLMEVIEWS:1200/subSUB1:SAPLMEGUI:1301"
)

// DefaultLayout returns the IDs of a standard ME22N screen (SAP GUI 7.x,
// header collapsed, item overview and item detail expanded).
func DefaultLayout() Layout {
	return Layout{
		MainWindow: "wnd[0]",
		OKCode:     "wnd[0]/tbar[0]/okcd",
		StatusBar:  "wnd[0]/sbar",
		SaveButton: "wnd[0]/tbar[0]/btn[11]",

		PopupWindow:  "wnd[1]",
		PopupCancel:  "wnd[1]/tbar[0]/btn[12]",
		PopupConfirm: "wnd[1]/tbar[0]/btn[0]",
		PopupLeave:   "wnd[1]/usr/btnSPOP-VAROPTION1",

		OtherOrderButton: "wnd[0]/tbar[1]/btn[17]",
		OrderNumberField: "wnd[1]/usr/subSUB0:SAPLMEGUI:0003/ctxtMEPO_SELECT-EBELN",

		ItemTable:      itemOverview + "/tblSAPLMEGUITC_1211",
		ItemNumberCell: itemOverview + "/tblSAPLMEGUITC_1211/txtMEPO1211-EBELP[1,%d]",

		ItemSelector: itemDetail + "/subSUB1:SAPLMEGUI:6000/cmbDYN_6000-LIST",
		DeliveryDateCell: itemDetail + "/subSUB2:SAPLMEGUI:1303/tabsITEM_DETAIL/tabpTABIDT5/" +
			"ssubTABSTRIPCONTROL1SUB:SAPLMEGUI:1320/tblSAPLMEGUITC_1320/ctxtMEPO1320-EEIND[2,0]",
	}
}
