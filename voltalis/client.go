package voltalis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Observer receives request and login outcomes, typically to record metrics.
type Observer interface {
	ObserveRequest(method string, status int, duration time.Duration)
	ObserveLogin(success bool)
}

type noopObserver struct{}

func (noopObserver) ObserveRequest(string, int, time.Duration) {}
func (noopObserver) ObserveLogin(bool)                         {}

type applianceState struct {
	data            ApplianceData
	idManualSetting int
	reachable       bool
}

type programState struct {
	data        ProgramData
	programType ProgramType
}

// Client talks to the Voltalis API and owns the id-keyed appliance and program tables.
// Views returned by the client read through to these tables.
type Client struct {
	baseURL    string
	httpClient *http.Client
	username   string
	password   string
	autoLogin  bool
	logger     *logrus.Entry
	observer   Observer
	limiter    *rate.Limiter

	cache *Cache

	mutex      sync.RWMutex
	appliances map[int]*applianceState
	programs   map[int]*programState

	// Serializes full-replace PUTs per appliance or program.
	mutationLocks sync.Map
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithAutoLogin makes Initialize log in before fetching anything.
func WithAutoLogin(autoLogin bool) Option {
	return func(c *Client) {
		c.autoLogin = autoLogin
	}
}

func WithLogger(logger *logrus.Entry) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit caps outgoing API requests at limit per second, allowing bursts of burst.
func WithRateLimit(limit float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(limit), burst)
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

func NewClient(username string, password string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		username:   username,
		password:   password,
		logger:     logrus.StandardLogger().WithField("component", "voltalis"),
		observer:   noopObserver{},
		cache:      newCache(),
		appliances: make(map[int]*applianceState),
		programs:   make(map[int]*programState),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Cache returns the client's token and site cache.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Initialize logs in when auto-login is enabled, then loads the default site, the
// appliances and the programs.
func (c *Client) Initialize(ctx context.Context) error {
	if c.autoLogin && c.username != "" && c.password != "" {
		if err := c.Login(ctx); err != nil {
			return err
		}
	}

	if _, err := c.FetchDefaultSiteID(ctx); err != nil {
		return err
	}

	if _, err := c.FetchAppliances(ctx); err != nil {
		return err
	}

	if _, err := c.FetchPrograms(ctx); err != nil {
		return err
	}

	return nil
}

// Close logs out of the API.
func (c *Client) Close(ctx context.Context) error {
	return c.Logout(ctx)
}

func (c *Client) Login(ctx context.Context) error {
	c.logger.Debug("Login start")

	resp, err := c.send(ctx, http.MethodPost, loginPath, loginRequest{Login: c.username, Password: c.password}, false)
	if err != nil {
		c.observer.ObserveLogin(false)
		return fmt.Errorf("login: %w", err)
	}

	if resp == nil {
		c.observer.ObserveLogin(false)
		return fmt.Errorf("login: %w", &TransportError{Method: http.MethodPost, Path: loginPath, StatusCode: http.StatusNotFound})
	}

	var login loginResponse
	if err := resp.decode(&login); err != nil {
		c.observer.ObserveLogin(false)
		return fmt.Errorf("login: %w", err)
	}

	if login.Token == "" {
		c.observer.ObserveLogin(false)
		return errors.New("login: response carried no token")
	}

	c.cache.Set(AuthToken, login.Token)
	c.observer.ObserveLogin(true)
	c.logger.Info("Login successful")

	return nil
}

// Logout ends the API session and forgets the cached token. It is a no-op without a token.
func (c *Client) Logout(ctx context.Context) error {
	if c.cache.Get(AuthToken) == "" {
		return nil
	}

	if _, err := c.send(ctx, http.MethodDelete, logoutPath, nil, false); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	c.cache.Set(AuthToken, "")
	c.logger.Info("Logout successful")

	return nil
}

// FetchDefaultSiteID looks up the account's default site and caches its id.
func (c *Client) FetchDefaultSiteID(ctx context.Context) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, accountMePath, nil, true)
	if err != nil {
		return "", fmt.Errorf("fetching account: %w", err)
	}

	if resp == nil {
		return "", errors.New("fetching account: not found")
	}

	var account accountResponse
	if err := resp.decode(&account); err != nil {
		return "", fmt.Errorf("fetching account: %w", err)
	}

	siteID := strconv.Itoa(account.DefaultSite.ID)
	c.cache.Set(DefaultSiteID, siteID)
	c.logger.Infof("Default site id = %v", siteID)

	return siteID, nil
}

// FetchAppliances replaces the appliance records with the current listing and merges in
// the manual setting ids.
func (c *Client) FetchAppliances(ctx context.Context) ([]*Appliance, error) {
	c.logger.Debug("Fetching appliances")

	resp, err := c.send(ctx, http.MethodGet, appliancesPath, nil, true)
	if err != nil {
		return nil, fmt.Errorf("fetching appliances: %w", err)
	}

	var appliances []ApplianceData
	if resp != nil {
		if err := resp.decode(&appliances); err != nil {
			return nil, fmt.Errorf("fetching appliances: %w", err)
		}
	}

	c.mutex.Lock()
	for _, data := range appliances {
		c.appliances[data.ID] = &applianceState{
			data:      data,
			reachable: true,
		}
	}
	c.mutex.Unlock()

	if err := c.FetchManualSettings(ctx); err != nil {
		return nil, err
	}

	return c.Appliances(), nil
}

// FetchManualSettings reads the manual settings listing and records each setting id on
// its appliance. Settings for unknown appliances are skipped.
func (c *Client) FetchManualSettings(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, manualSetPath, nil, true)
	if err != nil {
		return fmt.Errorf("fetching manual settings: %w", err)
	}

	if resp == nil {
		return nil
	}

	var settings []ManualSetting
	if err := resp.decode(&settings); err != nil {
		return fmt.Errorf("fetching manual settings: %w", err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, setting := range settings {
		state, ok := c.appliances[setting.IDAppliance]
		if !ok {
			c.logger.Warnf("Manual setting %v refers to unknown appliance %v, skipping", setting.ID, setting.IDAppliance)
			continue
		}

		c.logger.Debugf("Appliance %v manual setting id = %v", setting.IDAppliance, setting.ID)
		state.idManualSetting = setting.ID
	}

	return nil
}

// RefreshAppliance re-reads one appliance. Other appliances are left untouched.
func (c *Client) RefreshAppliance(ctx context.Context, id int) error {
	resp, err := c.send(ctx, http.MethodGet, idPath(appliancesPath, id), nil, true)
	if err != nil {
		return fmt.Errorf("refreshing appliance %v: %w", id, err)
	}

	if resp == nil {
		return nil
	}

	var data ApplianceData
	if err := resp.decode(&data); err != nil {
		return fmt.Errorf("refreshing appliance %v: %w", id, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	state, ok := c.appliances[id]
	if !ok {
		state = &applianceState{reachable: true}
		c.appliances[id] = state
	}
	state.data = data

	return nil
}

// RefreshDiagnostics updates the reachability of every appliance listed by autodiag.
func (c *Client) RefreshDiagnostics(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, autodiagPath, nil, true)
	if err != nil {
		return fmt.Errorf("refreshing diagnostics: %w", err)
	}

	if resp == nil {
		return nil
	}

	var diagnostics []Diagnostic
	if err := resp.decode(&diagnostics); err != nil {
		return fmt.Errorf("refreshing diagnostics: %w", err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, diagnostic := range diagnostics {
		state := c.findAppliance(diagnostic)
		if state == nil {
			c.logger.Debugf("Diagnostic for unknown appliance %q, skipping", diagnostic.Name)
			continue
		}

		state.reachable = diagnostic.Status == diagnosticOK
		if !state.reachable {
			c.logger.Warnf("Appliance %v (%v) is not reachable: %v", state.data.ID, state.data.Name, diagnostic.Status)
		}
	}

	return nil
}

// findAppliance matches a diagnostic by appliance id, falling back to the name.
// Callers must hold c.mutex.
func (c *Client) findAppliance(diagnostic Diagnostic) *applianceState {
	if state, ok := c.appliances[diagnostic.IDAppliance]; ok {
		return state
	}

	for _, state := range c.appliances {
		if strings.EqualFold(state.data.Name, diagnostic.Name) {
			return state
		}
	}

	return nil
}

// FetchPrograms loads the user programs and the quick settings into one table.
func (c *Client) FetchPrograms(ctx context.Context) ([]*Program, error) {
	c.logger.Debug("Fetching programs")

	userPrograms, err := c.getPrograms(ctx, userProgramsPath)
	if err != nil {
		return nil, fmt.Errorf("fetching user programs: %w", err)
	}

	defaultPrograms, err := c.getPrograms(ctx, quickSetsPath)
	if err != nil {
		return nil, fmt.Errorf("fetching default programs: %w", err)
	}

	c.storePrograms(userPrograms, ProgramTypeUser)
	c.storePrograms(defaultPrograms, ProgramTypeDefault)

	return c.Programs(), nil
}

// RefreshDefaultPrograms re-reads the quick settings.
func (c *Client) RefreshDefaultPrograms(ctx context.Context) error {
	programs, err := c.getPrograms(ctx, quickSetsPath)
	if err != nil {
		return fmt.Errorf("refreshing default programs: %w", err)
	}

	c.storePrograms(programs, ProgramTypeDefault)

	return nil
}

func (c *Client) RefreshUserProgram(ctx context.Context, id int) error {
	resp, err := c.send(ctx, http.MethodGet, programPath(userProgramPath, id), nil, true)
	if err != nil {
		return fmt.Errorf("refreshing program %v: %w", id, err)
	}

	if resp == nil {
		return nil
	}

	var data ProgramData
	if err := resp.decode(&data); err != nil {
		return fmt.Errorf("refreshing program %v: %w", id, err)
	}

	c.storePrograms([]ProgramData{data}, ProgramTypeUser)

	return nil
}

func (c *Client) getPrograms(ctx context.Context, path string) ([]ProgramData, error) {
	resp, err := c.send(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}

	var programs []ProgramData
	if resp != nil {
		if err := resp.decode(&programs); err != nil {
			return nil, err
		}
	}

	return programs, nil
}

func (c *Client) storePrograms(programs []ProgramData, programType ProgramType) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, data := range programs {
		c.programs[data.ID] = &programState{
			data:        data,
			programType: programType,
		}
	}
}

// SetManualSetting replaces the manual setting with the given id.
func (c *Client) SetManualSetting(ctx context.Context, id int, setting ManualSetting) error {
	defer c.lockMutation("manualsetting", id)()

	c.logger.Debugf("Setting manual setting %v: %+v", id, setting)

	if _, err := c.send(ctx, http.MethodPut, idPath(manualSetPath, id), setting, true); err != nil {
		return fmt.Errorf("setting manual setting %v: %w", id, err)
	}

	return nil
}

// SetDefaultProgramState enables or disables a quick setting.
func (c *Client) SetDefaultProgramState(ctx context.Context, id int, enabled bool) error {
	defer c.lockMutation("program", id)()

	if _, err := c.send(ctx, http.MethodPut, programPath(quickSetEnable, id), defaultProgramState{Enabled: enabled}, true); err != nil {
		return fmt.Errorf("setting default program %v: %w", id, err)
	}

	return nil
}

// SetUserProgramState enables or disables a user program.
func (c *Client) SetUserProgramState(ctx context.Context, id int, name string, enabled bool) error {
	defer c.lockMutation("program", id)()

	if _, err := c.send(ctx, http.MethodPut, programPath(userProgramPath, id), userProgramState{Name: name, Enabled: enabled}, true); err != nil {
		return fmt.Errorf("setting user program %v: %w", id, err)
	}

	return nil
}

func (c *Client) lockMutation(kind string, id int) func() {
	value, _ := c.mutationLocks.LoadOrStore(kind+"/"+strconv.Itoa(id), &sync.Mutex{})
	mutex := value.(*sync.Mutex)
	mutex.Lock()

	return mutex.Unlock
}

// Appliances returns a view per known appliance, ordered by id.
func (c *Client) Appliances() []*Appliance {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	ids := make([]int, 0, len(c.appliances))
	for id := range c.appliances {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	appliances := make([]*Appliance, len(ids))
	for i, id := range ids {
		appliances[i] = &Appliance{client: c, id: id}
	}

	return appliances
}

func (c *Client) Appliance(id int) (*Appliance, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if _, ok := c.appliances[id]; !ok {
		return nil, false
	}

	return &Appliance{client: c, id: id}, true
}

// Programs returns a view per known program, ordered by id.
func (c *Client) Programs() []*Program {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	ids := make([]int, 0, len(c.programs))
	for id := range c.programs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	programs := make([]*Program, len(ids))
	for i, id := range ids {
		programs[i] = &Program{client: c, id: id}
	}

	return programs
}

func (c *Client) Program(id int) (*Program, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if _, ok := c.programs[id]; !ok {
		return nil, false
	}

	return &Program{client: c, id: id}, true
}
