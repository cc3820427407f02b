package settings

// View is the redacted representation served over HTTP. Secrets never
// leave the process; the frontend only needs to know whether one is set.
type View struct {
	Router RouterView `json:"router"`
	Bands  Bands      `json:"bands"`
	Scan   Scan       `json:"scan"`
}

type RouterView struct {
	Address       string `json:"address"`
	Username      string `json:"username"`
	HasPassword   bool   `json:"has_password"`
	HasToken      bool   `json:"has_token"`
	WLANInterface string `json:"wlan_interface"`
}

func (s Settings) Redacted() View {
	return View{
		Router: RouterView{
			Address:       s.Router.Address,
			Username:      s.Router.Username,
			HasPassword:   s.Router.Password != "",
			HasToken:      s.Router.Token != "",
			WLANInterface: s.Router.WLANInterface,
		},
		Bands: s.Bands,
		Scan:  s.Scan,
	}
}
