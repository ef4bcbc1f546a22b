package logic

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"feiyu/internal/model"
	"feiyu/internal/svc"
)

// UserLogic 用户逻辑
type UserLogic struct {
	ctx context.Context
}

// NewUserLogic 创建用户逻辑
func NewUserLogic(ctx context.Context) *UserLogic {
	return &UserLogic{ctx: ctx}
}

// 用户状态
const (
	UserStatusNormal   = 1
	UserStatusDisabled = 0
)

// RegisterReq 注册请求
type RegisterReq struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=64"`
	Nickname string `json:"nickname" validate:"max=50"`
}

// LoginReq 登录请求
type LoginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResp 登录响应
type LoginResp struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register 注册用户
func (l *UserLogic) Register(req *RegisterReq) (*model.User, error) {
	var count int64
	if err := svc.Ctx.DB.WithContext(l.ctx).
		Model(&model.User{}).Where("username = ?", req.Username).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("用户名已存在")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	nickname := req.Nickname
	if nickname == "" {
		nickname = req.Username
	}
	user := &model.User{
		Username: req.Username,
		Password: string(hashed),
		Nickname: nickname,
		Status:   UserStatusNormal,
	}
	if err := svc.Ctx.DB.WithContext(l.ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Login 登录并签发 token
func (l *UserLogic) Login(req *LoginReq) (*LoginResp, error) {
	var user model.User
	err := svc.Ctx.DB.WithContext(l.ctx).
		Where("username = ?", req.Username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New("用户名或密码错误")
	}
	if err != nil {
		return nil, err
	}
	if user.Status != UserStatusNormal {
		return nil, errors.New("账号已禁用")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return nil, errors.New("用户名或密码错误")
	}

	token, err := svc.Ctx.Token.Issue(l.ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResp{Token: token, User: &user}, nil
}

// Logout 注销 token
func (l *UserLogic) Logout(token string) error {
	return svc.Ctx.Token.Revoke(l.ctx, token)
}

// GetByID 根据ID获取用户
func (l *UserLogic) GetByID(id int64) (*model.User, error) {
	var user model.User
	if err := svc.Ctx.DB.WithContext(l.ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("用户不存在")
		}
		return nil, err
	}
	return &user, nil
}
